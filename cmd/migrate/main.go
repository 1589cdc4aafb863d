// Command migrate applies the embedded schema migrations to the feedback
// market database.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "FEEDBACK_DB_DSN"

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database connection string (default: $FEEDBACK_DB_DSN, then config.toml)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	url, err := resolveDSN(*dsn)
	if err != nil {
		fail(logger, "resolve dsn", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		fail(logger, "open migration source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		fail(logger, "create migrator", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			fail(logger, "read version", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			fail(logger, "force version", err)
		}
		logger.Info("version forced", "version", *force)
	case *up:
		if err := ignoreNoChange(m.Up()); err != nil {
			fail(logger, "apply migrations", err)
		}
		logger.Info("migrations applied")
	case *down:
		if err := ignoreNoChange(m.Down()); err != nil {
			fail(logger, "revert migrations", err)
		}
		logger.Info("migrations reverted")
	case *steps != 0:
		if err := ignoreNoChange(m.Steps(*steps)); err != nil {
			fail(logger, "step migrations", err)
		}
		logger.Info("migration steps applied", "steps", *steps)
	default:
		fmt.Println("usage: migrate [-dsn <connection-string>] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}

// resolveDSN prefers the flag, then FEEDBACK_DB_DSN, then the database
// section of the service configuration.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if dsn := os.Getenv(envDSN); dsn != "" {
		return dsn, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Database.ConnURL(), nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
