package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("peer drain", "sub-mad01-data01", "exactly one of --include or --exclude", "both given")

	msg := err.Error()
	for _, want := range []string{"peer drain", "sub-mad01-data01", "exactly one of", "both given"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Error("should wrap ErrPreconditionFailed")
	}

	noDetails := NewPreconditionError("op", "res", "pre", "")
	if strings.Contains(noDetails.Error(), "(") {
		t.Errorf("Error() without details should have no parens: %q", noDetails.Error())
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("unknown path type \"foo\"")
		want := "validation failed: unknown path type \"foo\""
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")

		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "first error").
			Add(true, "this passes").
			AddErrorf("formatted error: %d", 42).
			Build()

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(verr.Errors) != 2 {
			t.Errorf("Expected 2 errors, got %d", len(verr.Errors))
		}
		if verr.Errors[1] != "formatted error: 42" {
			t.Errorf("Errors[1] = %q", verr.Errors[1])
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrInvalidConfig,
		ErrPreconditionFailed,
		ErrValidationFailed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	wrapped := fmt.Errorf("settings: %w", NewValidationError("msg"))
	if !errors.Is(wrapped, ErrValidationFailed) {
		t.Error("wrapped ValidationError should match ErrValidationFailed")
	}
}
