package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures for callers
type ErrorKind string

const (
	ErrorKindInvalidArgument   ErrorKind = "INVALID_ARGUMENT"
	ErrorKindInvalidState      ErrorKind = "INVALID_STATE"
	ErrorKindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	ErrorKindNotFound          ErrorKind = "NOT_FOUND"
	ErrorKindStorageFailure    ErrorKind = "STORAGE_FAILURE"
)

// LedgerError is the error type returned by every ledger operation.
type LedgerError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Cause }

// Is matches any LedgerError of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument   = &LedgerError{Kind: ErrorKindInvalidArgument, Message: "invalid argument"}
	ErrInvalidState      = &LedgerError{Kind: ErrorKindInvalidState, Message: "invalid state"}
	ErrInsufficientFunds = &LedgerError{Kind: ErrorKindInsufficientFunds, Message: "insufficient funds"}
	ErrNotFound          = &LedgerError{Kind: ErrorKindNotFound, Message: "not found"}
	ErrStorageFailure    = &LedgerError{Kind: ErrorKindStorageFailure, Message: "storage failure"}
)

func NewInvalidArgument(format string, args ...any) *LedgerError {
	return &LedgerError{Kind: ErrorKindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidState(format string, args ...any) *LedgerError {
	return &LedgerError{Kind: ErrorKindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientFunds(have, need int64) *LedgerError {
	return &LedgerError{
		Kind:    ErrorKindInsufficientFunds,
		Message: fmt.Sprintf("insufficient balance: have %d, need %d", have, need),
	}
}

func NewNotFound(entity string, id int64) *LedgerError {
	return &LedgerError{Kind: ErrorKindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func NewStorageFailure(msg string, cause error) *LedgerError {
	return &LedgerError{Kind: ErrorKindStorageFailure, Message: msg, Cause: cause}
}

// KindOf returns the kind of the first LedgerError in err's chain.
// Errors that are not ledger errors are reported as storage failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ErrorKindStorageFailure
}

// AsLedgerError leaves ledger errors untouched and wraps anything else as a
// storage failure.
func AsLedgerError(err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return err
	}
	return NewStorageFailure("storage operation failed", err)
}
