// Package errors provides custom error types for the ledger API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Details:    sentinel.Details,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Details:    sentinel.Details,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError carrying a structured payload for the caller.
func WithDetails(sentinel *AppError, message string, details any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Details:    details,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors.
var (
	ErrUnauthorized  = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken  = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}

	ErrAdminNotConfigured = &AppError{Code: "ADMIN_NOT_CONFIGURED", Message: "Admin endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound      = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrAccountInactive      = &AppError{Code: "ACCOUNT_INACTIVE", Message: "Account is not active", StatusCode: http.StatusBadRequest}
	ErrDuplicateAccountCode = &AppError{Code: "DUPLICATE_ACCOUNT_CODE", Message: "An account with this code already exists", StatusCode: http.StatusConflict}
	ErrInvalidParentAccount = &AppError{Code: "INVALID_PARENT_ACCOUNT", Message: "Parent account is invalid", StatusCode: http.StatusBadRequest}
)

// Entry validation errors.
var (
	ErrInsufficientEntries = &AppError{Code: "INSUFFICIENT_ENTRIES", Message: "A transaction needs at least two entries", StatusCode: http.StatusBadRequest}
	ErrInvalidEntry        = &AppError{Code: "INVALID_ENTRY", Message: "Invalid entry", StatusCode: http.StatusBadRequest}
	ErrUnbalancedEntries   = &AppError{Code: "UNBALANCED_ENTRIES", Message: "Debits and credits do not balance", StatusCode: http.StatusBadRequest}
)

// Transaction group errors.
var (
	ErrTransactionNotFound      = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotEditable   = &AppError{Code: "TRANSACTION_NOT_EDITABLE", Message: "Transaction cannot be changed in its current status", StatusCode: http.StatusConflict}
	ErrInvalidStatusTransition  = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Status change is not allowed", StatusCode: http.StatusConflict}
	ErrHasDependentTransactions = &AppError{Code: "HAS_DEPENDENT_TRANSACTIONS", Message: "Other transactions draw funds from this transaction", StatusCode: http.StatusConflict}
	ErrDuplicateGroupNumber     = &AppError{Code: "DUPLICATE_GROUP_NUMBER", Message: "Group number already in use", StatusCode: http.StatusConflict}
	ErrConcurrentModification   = &AppError{Code: "CONCURRENT_MODIFICATION", Message: "Transaction was modified by another request", StatusCode: http.StatusConflict}
)

// Funding errors.
var (
	ErrInvalidFundingSource    = &AppError{Code: "INVALID_FUNDING_SOURCE", Message: "Invalid funding source", StatusCode: http.StatusBadRequest}
	ErrFundingExceedsAvailable = &AppError{Code: "FUNDING_EXCEEDS_AVAILABLE", Message: "Funding draw exceeds the available amount", StatusCode: http.StatusBadRequest}
)
