package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrNotFound        = errors.New("record not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
)

// DuplicatePaymentError is returned when a payment for the same transaction id
// already exists. Payment holds the stored record.
type DuplicatePaymentError struct {
	Payment *Payment
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("payment for transaction %s already exists", e.Payment.TransactionID)
}

func (e *DuplicatePaymentError) Unwrap() error {
	return ErrConflict
}

// ValidationError wraps ErrValidation with a field-specific message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
