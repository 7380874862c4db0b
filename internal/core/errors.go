package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrCarriageReturn     = errors.New("description must not contain carriage returns")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmptyName          = errors.New("empty name")
	ErrNotFundable        = errors.New("only Living and Playing expenses can be paid from savings")
	ErrInvalidSort        = errors.New("invalid sort order")

	// ErrInsufficientFunds blocks a savings-funded expense larger than the
	// current total savings.
	ErrInsufficientFunds = errors.New("insufficient savings")

	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrForbidden    = errors.New("access denied")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError marks input rejected before reaching the backend.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError.
func Invalid(err error) error {
	return &ValidationError{Err: err}
}

// BackendError wraps any failure of the persistence or transport layer.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// Backend wraps err as a BackendError unless it is nil or already a domain error.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// PartialWriteError reports a paired write where the primary record was stored
// but the offsetting record was not.
type PartialWriteError struct {
	PrimaryID string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("transaction %s saved but savings offset failed: %v", e.PrimaryID, e.Err)
}
func (e *PartialWriteError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDomainError reports whether err carries one of the domain sentinels.
func IsDomainError(err error) bool {
	if IsValidation(err) {
		return true
	}
	for _, target := range []error{ErrInsufficientFunds, ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
