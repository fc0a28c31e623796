// Package ledgererror defines the error taxonomy surfaced by the ledger engine.
// Callers branch on the type with errors.As and on the precondition with errors.Is.
package ledgererror

import (
	"errors"
	"fmt"
)

// Precondition sentinels. Conflict and validation errors wrap one of these so
// operators can tell which rule rejected the request.
var (
	ErrAlreadyReconciled  = errors.New("bank transaction already reconciled")
	ErrDuplicatePosting   = errors.New("a transaction with this external id already exists")
	ErrCollectorRequired  = errors.New("collector is required")
	ErrAmountBelowMinimum = errors.New("amount below minimum")
	ErrIgnored            = errors.New("bank transaction is ignored")
	ErrNotPending         = errors.New("bank transaction is not pending")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports an operation rejected by the current state of an entity.
type ConflictError struct {
	Entity string
	ID     string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %v", e.Entity, e.ID, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DependencyError wraps a storage or collaborator failure. Callers may retry.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// ParseError represents an error while parsing one statement row
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: failed to parse %s='%s': %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Conflict builds a ConflictError for entity/id wrapping reason.
func Conflict(entity string, id interface{}, reason error) error {
	return &ConflictError{Entity: entity, ID: fmt.Sprint(id), Err: reason}
}

// NotFound builds a NotFoundError.
func NotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// Dependency wraps err as a DependencyError unless it already carries one of
// the engine's own error types.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsKnown(err) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// IsKnown reports whether err already belongs to the taxonomy.
func IsKnown(err error) bool {
	var (
		v *ValidationError
		c *ConflictError
		n *NotFoundError
		d *DependencyError
		p *ParseError
	)
	return errors.As(err, &v) || errors.As(err, &c) || errors.As(err, &n) ||
		errors.As(err, &d) || errors.As(err, &p)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
