package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for repository operations.
var (
	// ErrNotFound means no row matched both the id and the owner.
	ErrNotFound = errors.New("record not found")
	// ErrUserNotFound means no user has the given email.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists means the users.email unique constraint rejected an insert.
	ErrEmailExists = errors.New("email already exists")
	// ErrOwnerNotFound means the owner_id foreign key rejected an insert.
	ErrOwnerNotFound = errors.New("owner not found")
)

// PostgreSQL SQLSTATE codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
