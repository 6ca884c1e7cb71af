package promise

import (
	"errors"
	"fmt"
	"testing"

	"github.com/behrlich/go-promise/internal/arena"
	"github.com/behrlich/go-promise/internal/slab"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("Then", ErrCodeBadCallback, "unsupported shape")
	want := "promise: unsupported shape (op=Then)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	// Without a message the code is the message.
	err = NewError("", ErrCodeInvariant, "")
	want = "promise: invariant violation"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := NewError("Obtain", ErrCodeOutOfMemory, "")
	if !errors.Is(err, &Error{Code: ErrCodeOutOfMemory}) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, &Error{Code: ErrCodeInvariant}) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError("Then", ErrCodeBadCallback, ""))
	if !IsCode(err, ErrCodeBadCallback) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(err, ErrCodeOutOfMemory) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), ErrCodeBadCallback) {
		t.Error("IsCode matched a non-promise error")
	}
}

func TestWrapErrorMapsAllocatorFailures(t *testing.T) {
	oom := WrapError("New", &arena.OverflowError{Requested: 64, Used: 2048, Capacity: 2048})
	if oom.Code != ErrCodeOutOfMemory {
		t.Errorf("overflow code = %q, want %q", oom.Code, ErrCodeOutOfMemory)
	}

	under := WrapError("Release", &slab.UnderflowError{Refs: -1})
	if under.Code != ErrCodeInvariant {
		t.Errorf("underflow code = %q, want %q", under.Code, ErrCodeInvariant)
	}

	if WrapError("x", nil) != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestWrapErrorKeepsStructure(t *testing.T) {
	inner := NewError("splice", ErrCodeInvariant, "cycle")
	wrapped := WrapError("Then", inner)

	if wrapped.Op != "Then" {
		t.Errorf("op = %q, want Then", wrapped.Op)
	}
	if wrapped.Code != ErrCodeInvariant {
		t.Errorf("code = %q, want %q", wrapped.Code, ErrCodeInvariant)
	}

	var oe *arena.OverflowError
	err := WrapError("New", &arena.OverflowError{})
	if !errors.As(err, &oe) {
		t.Error("wrapped allocator error should unwrap")
	}
}
