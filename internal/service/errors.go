package service

import (
	"errors"
	"fmt"

	"basegraph.app/chat/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError rejects malformed input before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// storeErr converts store sentinels into typed errors for entity/id and
// wraps anything else with op.
func storeErr(err error, op, entity, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, store.ErrConflict):
		return &ConflictError{Entity: entity, ID: id}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
