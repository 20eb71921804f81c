package domain

import (
	"errors"
	"fmt"
)

// Error kinds reported by cage operations. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("cage not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrPersistence  = errors.New("storage failure")
)

// OperationError is returned by lifecycle and lookup operations. It carries a
// user-displayable reason and unwraps only to its kind, so storage details
// never reach the caller.
type OperationError struct {
	Op     string
	CageID string
	Kind   error
	Reason string
}

func (e *OperationError) Error() string {
	msg := e.Reason
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.CageID == "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.CageID, msg)
}

// Unwrap exposes the error kind.
func (e *OperationError) Unwrap() error { return e.Kind }

// NewOperationError builds an OperationError of the given kind.
func NewOperationError(op, cageID string, kind error, reason string) *OperationError {
	return &OperationError{Op: op, CageID: cageID, Kind: kind, Reason: reason}
}

// Classified reports whether err already carries one of the caller-facing kinds.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPersistence)
}
