//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fieldmgr/fieldmgr/internal/repository"
)

// TestDatabaseURLEnv points integration tests at an existing database
// instead of starting a container.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

const advisoryLockID int64 = 424242

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// PostgresURL returns a connection string for a database with the schema
// migrated to the latest version. It uses TEST_DATABASE_URL when set and
// otherwise starts one disposable postgres container per test binary.
func PostgresURL(t testing.TB) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		containerOnce.Do(func() {
			containerURL, containerErr = startPostgres(context.Background())
		})
		if containerErr != nil {
			t.Skipf("postgres container unavailable: %v", containerErr)
		}
		url = containerURL
	}

	if err := repository.Migrate(url, repository.MigrateUp); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return url
}

// startPostgres runs a postgres container. The testcontainers reaper removes
// it when the test binary exits.
func startPostgres(ctx context.Context) (string, error) {
	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fieldmgr"),
		postgres.WithUsername("fieldmgr"),
		postgres.WithPassword("fieldmgr"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", err
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return "", fmt.Errorf("connection string: %w", err)
	}
	return url, nil
}

// NewRepository opens a repository on a migrated database, serializes the
// test against other database tests and empties every table.
func NewRepository(t testing.TB) *repository.Repository {
	t.Helper()

	ctx := context.Background()
	url := PostgresURL(t)

	repo, err := repository.New(ctx, url, repository.PoolOptions{MaxConns: 5})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("lock database: %v", err)
	}
	t.Cleanup(func() {
		if err := unlock(); err != nil {
			t.Logf("unlock database: %v", err)
		}
	})

	if _, err := repo.Pool().Exec(ctx, "TRUNCATE users, fields, devices RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return repo
}

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	return func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}, nil
}
