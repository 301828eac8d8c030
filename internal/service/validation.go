package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
	"github.com/fieldmgr/fieldmgr/internal/model"
)

// validateName trims raw and enforces the shared name policy.
// It returns the trimmed name.
func validateName(kind model.Kind, raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if name == "" {
		return "", apperror.InvalidArgument(fmt.Sprintf("%s name is required.", kind.Label))
	}

	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return "", apperror.InvalidArgument(
			fmt.Sprintf("%s name cannot exceed %d characters.", kind.Label, model.MaxNameLength),
		)
	}

	// PostgreSQL text cannot hold NUL or invalid UTF-8; other control
	// characters are rejected with them so names stay printable.
	if !utf8.ValidString(name) || strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", apperror.InvalidArgument(fmt.Sprintf("%s name contains invalid characters.", kind.Label))
	}

	return name, nil
}

// ownerNotFoundMessage is the message for resource creation by an unregistered identity.
func ownerNotFoundMessage(addr string) string {
	return fmt.Sprintf("User '%s' not found. Create via POST /api/users.", addr)
}

// NotFoundMessage is the message for a resource that is absent or not owned by the caller.
func NotFoundMessage(kind model.Kind) string {
	return fmt.Sprintf("%s not found.", kind.Label)
}
