package promise

import (
	"errors"
	"fmt"

	"github.com/behrlich/go-promise/internal/arena"
	"github.com/behrlich/go-promise/internal/slab"
)

// Error represents a structured promise-engine error with operation context
type Error struct {
	Op    string    // Operation that failed (e.g., "Then", "DeferAttach")
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("promise: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("promise: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support by error code
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	// ErrCodeOutOfMemory marks arena exhaustion. On target hardware the
	// condition halts; in the hosted library the arena panics with
	// *arena.OverflowError, which WrapError maps to this code.
	ErrCodeOutOfMemory ErrorCode = "arena exhausted"

	// ErrCodeInvariant marks a broken ownership or chain invariant. The
	// debug splice assertion raises it for a splice that would form a cycle
	// or a replacement chain that does not terminate; a refcount underflow
	// panics with *slab.UnderflowError, which WrapError maps to this code.
	// List structure is not checked.
	ErrCodeInvariant ErrorCode = "invariant violation"

	// ErrCodeBadCallback is raised when a callback has an unsupported shape
	// or returns a null handle where a chain is required.
	ErrCodeBadCallback ErrorCode = "bad callback"
)

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// WrapError wraps an existing error with promise-engine context, mapping the
// allocator's fatal diagnostics onto their error codes.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if pe, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			Code:  pe.Code,
			Msg:   pe.Msg,
			Inner: pe.Inner,
		}
	}

	code := ErrCodeInvariant
	var overflow *arena.OverflowError
	if errors.As(inner, &overflow) {
		code = ErrCodeOutOfMemory
	}
	var underflow *slab.UnderflowError
	if errors.As(inner, &underflow) {
		code = ErrCodeInvariant
	}
	return &Error{
		Op:    op,
		Code:  code,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// fatal raises a fatal diagnostic. The embedded rendition of this library
// halts in place; the hosted rendition panics so the harness can observe
// the failure.
func fatal(op string, code ErrorCode, msg string) {
	panic(NewError(op, code, msg))
}
