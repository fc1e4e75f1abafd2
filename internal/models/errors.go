package models

import (
	"errors"
	"fmt"

	"warhorse/internal/i18n"
)

// AppError carries a user-facing failure kind alongside an optional internal
// cause. The kind picks the localized message sent to the client; the cause
// is only ever logged.
type AppError struct {
	Code i18n.Code
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Fail builds an AppError with no internal cause.
func Fail(code i18n.Code) *AppError {
	return &AppError{Code: code}
}

// NewAppError builds an AppError wrapping an internal cause.
func NewAppError(code i18n.Code, err error) *AppError {
	return &AppError{Code: code, Err: err}
}

// NewInternalError wraps an unexpected failure as the generic internal kind.
func NewInternalError(err error) *AppError {
	return &AppError{Code: i18n.CodeInternal, Err: err}
}

// CodeOf extracts the failure kind from err. Anything that is not an
// AppError is reported as internal.
func CodeOf(err error) i18n.Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return i18n.CodeInternal
}

// Localize resolves err to the message shown to a player in lang.
func Localize(err error, lang i18n.Language) string {
	return i18n.T(lang, CodeOf(err))
}
