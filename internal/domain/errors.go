package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEngagementFinished = errors.New("engagement already finished")
	ErrInvalidCategory    = errors.New("invalid collection category")
	ErrConflict           = errors.New("conflicts with an existing record")
)

// StructuralValidationError reports a malformed response payload.
type StructuralValidationError struct {
	Field   string
	Message string
}

func (e *StructuralValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NavigationOrderError reports a step submitted out of the allowed sequence.
type NavigationOrderError struct {
	StepID  uuid.UUID
	Message string
}

func (e *NavigationOrderError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, e.Message)
}

// SchemaValidationError wraps the JSON Schema validator's failure for one input.
type SchemaValidationError struct {
	StepInputID  uuid.UUID
	UIIdentifier string
	Message      string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("response for %s (%s) is invalid: %s", e.UIIdentifier, e.StepInputID, e.Message)
}

// DuplicateEngagementError reports a conflicting open engagement or assignment
// for the same (user, collection).
type DuplicateEngagementError struct {
	UserID       uuid.UUID
	CollectionID uuid.UUID
	Kind         string
}

func (e *DuplicateEngagementError) Error() string {
	return fmt.Sprintf("user %s already has an open %s for collection %s", e.UserID, e.Kind, e.CollectionID)
}

// IsValidationError reports whether err is a user-correctable input failure.
func IsValidationError(err error) bool {
	var s *StructuralValidationError
	var n *NavigationOrderError
	var sc *SchemaValidationError
	return errors.As(err, &s) || errors.As(err, &n) || errors.As(err, &sc)
}
