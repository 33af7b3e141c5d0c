package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/devpath/apps/api/echo"
	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
	"github.com/trezcool/devpath/core/user"
	logsvc "github.com/trezcool/devpath/services/logger"
	"github.com/trezcool/devpath/services/planner"
	"github.com/trezcool/devpath/storage/database"
	dummydb "github.com/trezcool/devpath/storage/database/dummy"
	sqlxrepos "github.com/trezcool/devpath/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB & repos
	var (
		usrRepo user.Repository
		prjRepo plan.Repository
	)
	if conf.Database.Engine == database.EngineInMem {
		db := dummydb.Open()
		usrRepo = dummydb.NewUserRepository(db)
		prjRepo = dummydb.NewProjectRepository(db)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		usrRepo = sqlxrepos.NewUserRepository(db)
		prjRepo = sqlxrepos.NewProjectRepository(db)
	}

	// set up services
	generator, err := newGenerator(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up planner: %v", err), err)
	}
	usrSvc := user.NewService(usrRepo)
	planSvc := plan.NewService(prjRepo, generator, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			PlanSvc:    planSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newGenerator falls back to the console planner in DEBUG when no API key is set.
func newGenerator(conf *core.Config, logger core.Logger) (plan.Generator, error) {
	opts, err := planner.NewOptions(conf)
	if err != nil {
		return nil, err
	}
	if conf.Planner.APIKey == "" && conf.Debug {
		logger.Warn("no planner API key set, using the console planner")
		return planner.NewConsoleGenerator(logger, opts.Pricing), nil
	}
	return planner.NewGenerator(opts, logger)
}
