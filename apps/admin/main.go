package main

import (
	"log"
	"os"

	"github.com/trezcool/devpath/core"
	logsvc "github.com/trezcool/devpath/services/logger"
	"github.com/trezcool/devpath/storage/database"
	sqlxrepos "github.com/trezcool/devpath/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(err.Error(), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	// start CLI
	cli := newCommandLine(db, sqlxrepos.NewUserRepository(db), os.Stdout)
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
