package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by repositories, services and handlers.
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("duplicate part number")
	ErrNotFound          = errors.New("not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("concurrent modification")
	ErrUnauthorized      = errors.New("unauthorized")
)

// NewValidationError wraps ErrValidation with a field level message.
func NewValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
