package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"plain error", errors.New("23505"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})) {
		t.Error("expected wrapped 23503 to be a foreign key violation")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation is not a foreign key violation")
	}
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	if err := Migrate("postgres://localhost/none", "sideways"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, name := range []string{"migrations/000001_init.up.sql", "migrations/000001_init.down.sql"} {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
