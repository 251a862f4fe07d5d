package game

import (
	"fmt"
	"strings"
)

// ValidationError reports caller-supplied input that violates a
// precondition. Fields names every violated field so boundary validation
// can surface all problems at once instead of the first one hit.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s (fields: %s)", e.Message, strings.Join(e.Fields, ", "))
}

func newValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// StateError reports an operation that is invalid for the current
// lifecycle state, e.g. submitting a round to a completed game.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state: %s", e.Message)
}

func newStateError(message string) *StateError {
	return &StateError{Message: message}
}

// indexedField names a position within a field, e.g. "scores[3]".
func indexedField(field string, index int) string {
	return fmt.Sprintf("%s[%d]", field, index)
}
