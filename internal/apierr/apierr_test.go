package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassOfUnwrapsWrappedError(t *testing.T) {
	inner := NotFound("collection not found", errors.New("no rows"))
	wrapped := fmt.Errorf("loading collection: %w", inner)
	if got := ClassOf(wrapped); got != ClassNotFound {
		t.Fatalf("ClassOf = %v, want %v", got, ClassNotFound)
	}
}

func TestClassOfDefaultsToInternal(t *testing.T) {
	if got := ClassOf(errors.New("boom")); got != ClassInternal {
		t.Fatalf("ClassOf = %v, want %v", got, ClassInternal)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Validation("bad iteration count", errors.New("must be >= 1"))
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
