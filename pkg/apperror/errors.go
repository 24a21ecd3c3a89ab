package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed to clients in the error_code field.
const (
	CodeValidation          = "VAL_001"
	CodePayloadTooLarge     = "VAL_002"
	CodeWalletNotFound      = "WLT_001"
	CodeInsufficientBalance = "WLT_002"
	CodeBalanceOverflow     = "WLT_003"
	CodeInternal            = "SYS_001"
	CodeLockTimeout         = "SYS_002"
	CodeRateLimitExceeded   = "RATE_001"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"detail"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the client may repeat the request unchanged.
func (e *AppError) Retryable() bool {
	return e.HTTPStatus == http.StatusServiceUnavailable || e.HTTPStatus == http.StatusTooManyRequests
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Validation (VAL) ----

// Validation returns a request validation error carrying message as detail.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusUnprocessableEntity)
}

func ErrPayloadTooLarge() *AppError {
	return New(CodePayloadTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Wallet Business Logic (WLT) ----

func ErrWalletNotFound() *AppError {
	return New(CodeWalletNotFound, "Wallet not found", http.StatusNotFound)
}

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Not enough balance", http.StatusBadRequest)
}

func ErrBalanceOverflow() *AppError {
	return New(CodeBalanceOverflow, "Balance limit exceeded", http.StatusUnprocessableEntity)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// ErrLockTimeout is returned when a wallet lock could not be acquired in time.
func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Wallet is busy, retry later", http.StatusServiceUnavailable, err)
}
