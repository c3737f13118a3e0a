package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrChargeNotFound      = errors.New("charge not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInvalidCharge       = errors.New("invalid charge")
	ErrPageOutOfRange      = errors.New("page out of range")
	ErrInvalidPageSize     = errors.New("invalid page size")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FieldError describes one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that made a charge input unacceptable.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInvalidCharge, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrInvalidCharge) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidCharge
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was flagged, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error codes
const (
	ErrCodeChargeNotFound      = "CHARGE_NOT_FOUND"
	ErrCodeInstallmentNotFound = "INSTALLMENT_NOT_FOUND"
	ErrCodeInvalidCharge       = "INVALID_CHARGE"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapChargeNotFound(chargeID string) *BusinessError {
	return NewBusinessError(
		ErrCodeChargeNotFound,
		fmt.Sprintf("Charge with ID %s not found", chargeID),
		ErrChargeNotFound,
	)
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment with ID %s not found", installmentID),
		ErrInstallmentNotFound,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsNotFound reports whether err refers to an unknown charge or installment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChargeNotFound) || errors.Is(err, ErrInstallmentNotFound)
}
