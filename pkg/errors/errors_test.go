package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeInvalidArgument, "radius %v", 0)
	if got := err.Error(); got != "INVALID_ARGUMENT: radius 0" {
		t.Fatalf("unexpected message %q", got)
	}

	cause := fmt.Errorf("disk full")
	wrapped := Wrap(ErrCodeInternal, cause, "save state")
	if got := wrapped.Error(); got != "INTERNAL_ERROR: save state: disk full" {
		t.Fatalf("unexpected message %q", got)
	}
	if !stderrors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	base := InvalidArgument("bad orientation %d", 7)
	err := fmt.Errorf("snap: %w", base)

	if !Is(err, ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT in chain")
	}
	if Is(err, ErrCodeNotFound) {
		t.Fatalf("did not expect NOT_FOUND")
	}
	if GetCode(err) != ErrCodeInvalidArgument {
		t.Fatalf("expected code INVALID_ARGUMENT, got %q", GetCode(err))
	}
	if UserMessage(err) != "bad orientation 7" {
		t.Fatalf("unexpected user message %q", UserMessage(err))
	}
}

func TestPlainErrors(t *testing.T) {
	err := stderrors.New("plain")
	if GetCode(err) != "" {
		t.Fatalf("expected empty code for plain error")
	}
	if GetCodeOr(err, ErrCodeInternal) != ErrCodeInternal {
		t.Fatalf("expected fallback code")
	}
	if UserMessage(err) != "plain" {
		t.Fatalf("expected plain message, got %q", UserMessage(err))
	}
}
