package library

import "fmt"

// Kind classifies an Error. Callers match a specific kind with
// errors.Is(err, ErrNotFound) and the whole taxonomy with
// errors.As(err, &libErr).
type Kind int

const (
	// KindValidation means the input failed a precondition; the caller can
	// correct the input and retry.
	KindValidation Kind = iota + 1
	// KindNotFound means a referenced id does not exist.
	KindNotFound
	// KindDuplicate means a uniqueness constraint (isbn, email) was violated.
	KindDuplicate
	// KindNotAvailable means the book is already on loan.
	KindNotAvailable
	// KindAlreadyReturned means the loan is already closed.
	KindAlreadyReturned
	// KindForeignKey means a delete was restricted by referencing loan rows.
	KindForeignKey
	// KindConnection means the store could not be opened or reached.
	KindConnection
	// KindExecution means a statement failed at the storage engine.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindDuplicate:
		return "duplicate"
	case KindNotAvailable:
		return "not available"
	case KindAlreadyReturned:
		return "already returned"
	case KindForeignKey:
		return "foreign key"
	case KindConnection:
		return "connection"
	case KindExecution:
		return "execution"
	}
	return "unknown"
}

// Error is the single root error type of this package. Every failure the
// entity modules, the validators, or the storage layer report is an *Error,
// so callers can switch on Kind, match with errors.Is, or treat the message
// as opaque. Field is set for validation failures only.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Msg, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so the Err* values below act as targets for errors.Is
// regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Matcher values for errors.Is. Not returned directly; compare only.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrDuplicate       = &Error{Kind: KindDuplicate}
	ErrNotAvailable    = &Error{Kind: KindNotAvailable}
	ErrAlreadyReturned = &Error{Kind: KindAlreadyReturned}
	ErrForeignKey      = &Error{Kind: KindForeignKey}
	ErrConnection      = &Error{Kind: KindConnection}
	ErrExecution       = &Error{Kind: KindExecution}
)

func validationError(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func notFoundError(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func duplicateError(format string, args ...any) error {
	return &Error{Kind: KindDuplicate, Msg: fmt.Sprintf(format, args...)}
}

func notAvailableError(format string, args ...any) error {
	return &Error{Kind: KindNotAvailable, Msg: fmt.Sprintf(format, args...)}
}

func alreadyReturnedError(format string, args ...any) error {
	return &Error{Kind: KindAlreadyReturned, Msg: fmt.Sprintf(format, args...)}
}

func foreignKeyError(format string, args ...any) error {
	return &Error{Kind: KindForeignKey, Msg: fmt.Sprintf(format, args...)}
}

func connectionError(msg string, err error) error {
	return &Error{Kind: KindConnection, Msg: msg, Err: err}
}

func executionError(msg string, err error) error {
	return &Error{Kind: KindExecution, Msg: msg, Err: err}
}
