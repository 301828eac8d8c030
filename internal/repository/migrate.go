package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration directions accepted by Migrate.
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies the embedded schema migrations in the given direction.
// Already being at the target version is not an error.
func Migrate(databaseURL, direction string) error {
	if direction != MigrateUp && direction != MigrateDown {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	db, err := openMigrationDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}

	return nil
}

// openMigrationDB connects with lib/pq using the same sslmode semantics as
// the pgx pool. lib/pq has no "prefer" mode and treats a missing sslmode
// as "require", so prefer and allow (and no sslmode at all) try TLS first
// and fall back to plaintext when the server does not support it.
func openMigrationDB(databaseURL string) (*sql.DB, error) {
	mode := sslModeOf(databaseURL)
	if mode != "" && mode != "prefer" && mode != "allow" {
		return pingMigrationDB(databaseURL)
	}

	db, err := pingMigrationDB(withSSLMode(databaseURL, "require"))
	if err == nil || !errors.Is(err, pq.ErrSSLNotSupported) {
		return db, err
	}
	return pingMigrationDB(withSSLMode(databaseURL, "disable"))
}

func pingMigrationDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect for migrations: %w", err)
	}
	return db, nil
}

var dsnSSLMode = regexp.MustCompile(`(^|\s)sslmode=(\S*)`)

// sslModeOf returns the sslmode set in a URL or keyword/value connection
// string, falling back to PGSSLMODE.
func sslModeOf(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && isPostgresScheme(u.Scheme) {
		if mode := u.Query().Get("sslmode"); mode != "" {
			return mode
		}
	} else if m := dsnSSLMode.FindStringSubmatch(dsn); m != nil {
		return m[2]
	}
	return os.Getenv("PGSSLMODE")
}

// withSSLMode returns dsn with its sslmode replaced by mode.
func withSSLMode(dsn, mode string) string {
	if u, err := url.Parse(dsn); err == nil && isPostgresScheme(u.Scheme) {
		q := u.Query()
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String()
	}
	if dsnSSLMode.MatchString(dsn) {
		return dsnSSLMode.ReplaceAllString(dsn, "${1}sslmode="+mode)
	}
	return strings.TrimSpace(dsn + " sslmode=" + mode)
}

func isPostgresScheme(scheme string) bool {
	return scheme == "postgres" || scheme == "postgresql"
}
