package engine

import (
	"errors"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "n", Message: "must be >= 2"}
	if err.Error() != "validation: n: must be >= 2" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestTransientKernelErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &TransientKernelError{Stage: "pollard_rho", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to find the wrapped inner error")
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := &InternalError{Reason: "failed to persist job", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to find the wrapped inner error")
	}
}

func TestInternalErrorMessageWithoutInner(t *testing.T) {
	err := &InternalError{Reason: "invariant violated"}
	if err.Error() != "internal error: invariant violated" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestCancellationErrorMessage(t *testing.T) {
	err := &CancellationError{Stage: "shor"}
	if err.Error() != "cancelled during stage shor" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
