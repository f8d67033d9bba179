package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeValidation           = "VALIDATION_FAILED"
	CodeUnknownItemType      = "UNKNOWN_ITEM_TYPE"
	CodeInvalidState         = "INVALID_STATE"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeStoreFailure         = "STORE_FAILURE"
)

// Common domain errors
var (
	ErrNotFound             = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput         = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation           = NewDomainError(CodeValidation, "Validation failed")
	ErrUnknownItemType      = NewDomainError(CodeUnknownItemType, "Unknown item type")
	ErrInvalidState         = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConfirmationRequired = NewDomainError(CodeConfirmationRequired, "Delete was not confirmed")
)

// NewValidationError creates a user-facing validation error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not-found error naming the missing record
func NewNotFoundError(collection, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s/%s not found", collection, id))
}

// NewUnknownItemTypeError creates an unknown-type error naming the offending type
func NewUnknownItemTypeError(itemType string) *DomainError {
	return NewDomainError(CodeUnknownItemType, fmt.Sprintf("Unknown item type: %s", itemType))
}
