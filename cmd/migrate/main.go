// Command migrate applies the embedded schema migrations.
//
// Usage:
//
//	migrate [up|down]
//
// DATABASE_URL selects the target database. The direction defaults to up.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"

	"github.com/fieldmgr/fieldmgr/internal/repository"
)

type options struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	direction, err := parseDirection(os.Args[1:])
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down]")
		os.Exit(2)
	}

	var opts options
	if err := env.Parse(&opts); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := repository.Migrate(opts.DatabaseURL, direction); err != nil {
		logger.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}

	logger.Info("migration complete", "direction", direction)
}

func parseDirection(args []string) (string, error) {
	switch len(args) {
	case 0:
		return repository.MigrateUp, nil
	case 1:
		if args[0] == repository.MigrateUp || args[0] == repository.MigrateDown {
			return args[0], nil
		}
		return "", fmt.Errorf("unknown direction %q", args[0])
	default:
		return "", fmt.Errorf("expected at most one argument, got %d", len(args))
	}
}
