// Package email normalizes and validates the email addresses used as
// caller identity. Callers must store and compare only the normalized form.
package email

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
)

// Client-facing validation messages.
const (
	MsgRequired = "Email is required."
	MsgInvalid  = "Invalid email format."
)

// Normalize trims surrounding whitespace and lowercases the address.
// It never fails; empty input yields an empty string.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Validate normalizes raw and checks it is a bare mailbox address.
// The returned error is an apperror of kind InvalidArgument.
func Validate(raw string) error {
	addr := Normalize(raw)
	if addr == "" {
		return apperror.InvalidArgument(MsgRequired)
	}

	if !isBareMailbox(addr) {
		return apperror.InvalidArgument(MsgInvalid)
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return apperror.InvalidArgument(MsgInvalid)
	}

	// The parser accepts display names and angle brackets; only a bare
	// address that survives parsing unchanged is allowed.
	if !strings.EqualFold(parsed.Address, addr) {
		return apperror.InvalidArgument(MsgInvalid)
	}

	return nil
}

// isBareMailbox applies the structural rules the parser is lenient about:
// exactly one "@", non-empty local and domain parts, no whitespace or
// control characters, no empty domain labels.
func isBareMailbox(addr string) bool {
	if strings.Count(addr, "@") != 1 {
		return false
	}

	for _, r := range addr {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}

	local, domain, _ := strings.Cut(addr, "@")
	if local == "" || domain == "" {
		return false
	}

	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return false
		}
	}

	return true
}
