package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class across the store, the orchestrator
// and the HTTP surface.
type ErrorCode string

const (
	ErrInvalidAddress      ErrorCode = "invalid_address"
	ErrAmountTooLow        ErrorCode = "amount_too_low"
	ErrNotFound            ErrorCode = "not_found"
	ErrNoFieldsProvided    ErrorCode = "no_fields_provided"
	ErrInvalidTransition   ErrorCode = "invalid_transition"
	ErrWalletNotConnected  ErrorCode = "wallet_not_connected"
	ErrInsufficientBalance ErrorCode = "insufficient_balance"
	ErrChainCallFailed     ErrorCode = "chain_call_failed"
	ErrInvalidArgument     ErrorCode = "invalid_argument"
	ErrInternal            ErrorCode = "internal_error"
)

// StackPayError carries a stable code alongside a human-readable message.
type StackPayError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	// Underlying cause, if any. Not serialized.
	Cause error `json:"-"`
}

func (e *StackPayError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StackPayError) Unwrap() error {
	return e.Cause
}

// NewError creates a StackPayError with the given code and message.
func NewError(code ErrorCode, message string) *StackPayError {
	return &StackPayError{Code: code, Message: message}
}

// WrapError creates a StackPayError that records err as its cause.
func WrapError(code ErrorCode, message string, err error) *StackPayError {
	e := &StackPayError{Code: code, Message: message, Cause: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// CodeOf extracts the error code from err, or ErrInternal when err is not
// a StackPayError.
func CodeOf(err error) ErrorCode {
	var spErr *StackPayError
	if errors.As(err, &spErr) {
		return spErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}
