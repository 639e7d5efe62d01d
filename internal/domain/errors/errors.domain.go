package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Transport layers match on these with errors.Is and map them
// to status codes (ErrNotFound -> 404, ErrConflict -> 409, ...).
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("resource not found")
	ErrConflict    = errors.New("conflicting state")
	ErrTransaction = errors.New("transaction aborted")
)

// ValidationError reports malformed input (bad amount, missing field).
// Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing shipment, bid, listing or marketplace item.
// An ownership mismatch on a scoped delete is reported the same way so that
// callers cannot probe for other users' listings.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports an operation that is not valid for the current state,
// e.g. bidding on a load that already has a driver.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransactionError wraps a datastore failure that aborted a transaction.
// Everything was rolled back, so the caller may resubmit.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// IsDomain reports whether err is one of the caller-facing domain errors that
// must be returned verbatim instead of being wrapped as a transaction failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
