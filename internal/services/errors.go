package services

import (
	"errors"
	"fmt"

	"researchhub/internal/auth"
	"researchhub/internal/utils/logger"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("resource already exists")
	ErrTransaction = errors.New("transaction failed")
)

// FieldError is a validation failure attributed to one input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// txFailure keeps caller-facing errors intact and turns anything else into a
// logged ErrTransaction.
func txFailure(log *logger.Logger, op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, auth.ErrForbidden):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	}
	_ = log.Error("Transaction rolled back during %s", err, op)
	return fmt.Errorf("%w: %s: %v", ErrTransaction, op, err)
}

func notFound(what string, id uint64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
}
