package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid argument", InvalidArgument("bad"), KindInvalidArgument},
		{"unauthenticated", Unauthenticated("missing"), KindUnauthenticated},
		{"not found", NotFound("gone"), KindNotFound},
		{"conflict", Conflict("dup", nil), KindConflict},
		{"wrapped", fmt.Errorf("create: %w", NotFound("gone")), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("Field not found."))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("did not expect errors.Is to match ErrConflict")
	}
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidArgument("Field name is required."))
	if got := MessageOf(err); got != "Field name is required." {
		t.Errorf("MessageOf() = %q", got)
	}
	if got := MessageOf(errors.New("boom")); got != "" {
		t.Errorf("expected empty message for unclassified error, got %q", got)
	}
}

func TestConflict_UnwrapsCause(t *testing.T) {
	cause := errors.New("unique violation")
	err := Conflict("User already exists.", cause)

	if !errors.Is(err, cause) {
		t.Error("expected conflict to unwrap to its cause")
	}
}
