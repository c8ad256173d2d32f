package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of workflow failure. Every code is
// recovered at the dispatch boundary and rendered as a reply; none is
// process-fatal.
type ErrorCode string

const (
	// Gate failures
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeMaintenanceDisabled  ErrorCode = "MAINTENANCE_DISABLED"
	ErrCodeAwaitingApproval     ErrorCode = "AWAITING_APPROVAL"
	ErrCodePendingTopupConflict ErrorCode = "PENDING_TOPUP_CONFLICT"

	// Order validation failures
	ErrCodeInvalidGameID   ErrorCode = "INVALID_GAME_ID"
	ErrCodeInvalidServerID ErrorCode = "INVALID_SERVER_ID"
	ErrCodeBannedAccount   ErrorCode = "BANNED_ACCOUNT"
	ErrCodeUnknownItem     ErrorCode = "UNKNOWN_ITEM"

	// Ledger failures
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeNoActiveStage     ErrorCode = "NO_ACTIVE_STAGE"

	// Admin operation failures
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyInState ErrorCode = "ALREADY_IN_STATE"

	// Infrastructure
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeStorage  ErrorCode = "STORAGE_ERROR"
)

// AppError is a typed application error carrying a workflow error code.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so callers can compare against a bare
// New(code, "") sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches structured context used in admin notifications.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new application error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// CodeOf extracts the error code from err, or ErrCodeInternal when err
// is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
