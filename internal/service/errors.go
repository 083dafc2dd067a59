package service

import (
	"errors"
	"fmt"
)

// ErrPersistence marks a verdict that was computed but could not be stored
var ErrPersistence = errors.New("failed to persist analysis record")

// ValidationError rejects a request before any analyzer runs
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
