package main

import (
	"context"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/devpath/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if err := database.SetDialect(cli.db); err != nil {
		return err
	}
	return gooseRunFunc(ctx, args[0], cli.db.DB, database.MigrationsDir(cli.db.DriverName()), args[1:]...)
}
