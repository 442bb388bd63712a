package core

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// Error kinds. Every error returned by a Service operation matches exactly one
// of these with errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate name")
	ErrInternal      = errors.New("internal failure")
)

// Error is a classified failure of one operation.
type Error struct {
	Kind    error  // one of the four kinds
	Op      string // operation name, e.g. "add column"
	Message string // client-safe text; empty for internal failures
	Code    string // support code override; see MapError
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalid(op, code, msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Op: op, Message: msg, Code: code}
}

func notFound(op, msg string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Message: msg}
}

func duplicate(op, msg string) *Error {
	return &Error{Kind: ErrDuplicateName, Op: op, Message: msg}
}

func internal(op string, err error) *Error {
	return &Error{Kind: ErrInternal, Op: op, Err: err}
}

// KindOf returns the kind of err: one of ErrInvalidInput, ErrNotFound,
// ErrDuplicateName or ErrInternal. Unclassified errors are internal. It
// returns nil for a nil error.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput):
		return ErrInvalidInput
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrDuplicateName):
		return ErrDuplicateName
	default:
		return ErrInternal
	}
}

// IsTransient reports whether err is a failure worth retrying: a statement
// timeout, an expired deadline or a full import queue.
func IsTransient(err error) bool {
	return errors.Is(err, store.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrTooManyImports)
}

// classify turns whatever came out of a transaction into a classified *Error.
// Errors raised by the operation itself pass through untouched; store
// failures are mapped by meaning so a race between a lookup and a write still
// yields the right kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrUnique):
		return &Error{Kind: ErrDuplicateName, Op: op, Message: "Name already exists", Err: err}
	case errors.Is(err, store.ErrNoRows):
		return &Error{Kind: ErrNotFound, Op: op, Message: "Record not found", Err: err}
	default:
		return internal(op, err)
	}
}
