// Package apperror defines the application's error taxonomy.
//
// Every failure a user can see maps to one sentinel error below. Callers test
// for a category with errors.Is and extract the human-readable message (and the
// offending field, for validation errors) with errors.As into *AppError:
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
//	    // appErr.Field names the rejected input
//	}
//
// None of these errors are fatal to the process.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrEmptyCard    = errors.New("card has no meaningful content")
	ErrExportFailed = errors.New("export failed")
	ErrPersistence  = errors.New("persistence error")
)

// AppError carries a category (Err), a message safe to show to the user and,
// optionally, the input field and the low-level cause.
type AppError struct {
	Err     error  // category sentinel, one of the Err* values above
	Message string // human-readable error message
	Field   string // optional: field causing the error
	Cause   error  // optional: underlying error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// Retryable reports whether repeating the action that produced err may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrExportFailed) || errors.Is(err, ErrPersistence)
}

func NotFound(resource, id string) *AppError {
	if id == "" {
		return &AppError{
			Err:     ErrNotFound,
			Message: fmt.Sprintf("%s not found", resource),
		}
	}
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// EmptyCard is returned when preview, save or export is attempted on a card
// that fails the meaningful-content check.
func EmptyCard(action string) *AppError {
	return &AppError{
		Err:     ErrEmptyCard,
		Message: fmt.Sprintf("cannot %s: add a provider name, a service or a footer line first", action),
	}
}

// ExportFailed wraps any failure of the rasterization pipeline.
func ExportFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrExportFailed,
		Message: "failed to generate card image, please try again",
		Cause:   cause,
	}
}

// Persistence wraps a durable-storage read or write failure.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: fmt.Sprintf("saved cards could not be %s", op),
		Cause:   cause,
	}
}
