package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrReferenceNotFound = errors.New("referenced object does not exist")
	ErrConflict          = errors.New("already exists")
	ErrTicketTaken       = fmt.Errorf("ticket for this trip, cargo and seat is already sold: %w", ErrConflict)
	ErrEmptyOrder        = &ValidationError{Field: "tickets", Message: "order must contain at least one ticket"}
)

// ValidationError reports an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReferenceError is returned when an input field points to an id the store
// does not know. It unwraps to ErrReferenceNotFound.
type ReferenceError struct {
	Field string
	ID    int64
}

func (e *ReferenceError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: %s", e.Field, ErrReferenceNotFound)
	}
	return fmt.Sprintf("%s: object with id %d does not exist", e.Field, e.ID)
}

func (e *ReferenceError) Unwrap() error {
	return ErrReferenceNotFound
}

// TicketError qualifies a validation or reference error with the position of
// the offending ticket in the order, e.g. "tickets[1].seat".
func TicketError(index int, err error) error {
	prefix := fmt.Sprintf("tickets[%d].", index)
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return &ValidationError{Field: prefix + vErr.Field, Message: vErr.Message}
	}
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		return &ReferenceError{Field: prefix + refErr.Field, ID: refErr.ID}
	}
	return err
}
