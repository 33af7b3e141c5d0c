package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
	"github.com/trezcool/devpath/core/user"
	logsvc "github.com/trezcool/devpath/services/logger"
	"github.com/trezcool/devpath/storage/database"
)

// Config returns a TEST config backed by the in-memory engine.
func Config() *core.Config {
	return &core.Config{
		Build:     "test",
		Env:       "TEST",
		TestMode:  true,
		AppName:   "DevPath",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      8000,
			ShutdownTimeout:           time.Second,
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.EngineInMem},
		Planner: core.PlannerConfig{
			Model:            "gpt-4o-mini",
			Timeout:          5 * time.Second,
			InputPricePer1K:  "0.005",
			OutputPricePer1K: "0.015",
		},
	}
}

// NewLogger returns a silent logger, with Rollbar disabled.
func NewLogger() *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), Config())
	logger.Enable(false)
	return logger
}

// PrepareDB opens a migrated sqlite database, closed on test cleanup.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// SamplePlan returns a fresh plan with 2 milestones of 2 steps each, nothing done.
func SamplePlan(title string) plan.Plan {
	return plan.Plan{
		Title:       title,
		Description: "A small CLI to track daily tasks",
		Category:    "CLI",
		TechStack:   []string{"Go", "SQLite"},
		Difficulty:  "Beginner",
		Milestones: []plan.Milestone{
			{
				MilestoneNumber: 0,
				Title:           "Setup",
				Steps: []plan.Step{
					{StepNumber: 0, Description: "Create the module"},
					{StepNumber: 1, Description: "Add a Makefile"},
				},
			},
			{
				MilestoneNumber: 1,
				Title:           "Core",
				Steps: []plan.Step{
					{StepNumber: 0, Description: "Model tasks"},
					{StepNumber: 1, Description: "Store tasks"},
				},
			},
		},
	}
}

func CreateProject(
	t *testing.T,
	repo plan.Repository,
	ownerID, title string,
	createdAt ...time.Time,
) plan.Project {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p, err := repo.CreateProject(context.Background(), plan.Project{
		OwnerID:   ownerID,
		Plan:      SamplePlan(title),
		Cost:      decimal.RequireFromString("0.0125"),
		Version:   1,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return p
}
