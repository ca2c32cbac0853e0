// Package apierr defines the error taxonomy (§7) shared across the core:
// a small set of typed application errors mapped to HTTP status codes at
// the transport boundary, and the wrapping/mapping of the internal
// validation errors (ReadOnlyViolation, UnknownSymbol, SchemaError,
// InvalidInterval) into VALIDATION_ERROR responses.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/schema"
	"github.com/rawcontext/engram-sub001/internal/validator"
)

// Code is one of the wire-visible error codes in §7.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

var codeStatus = map[Code]int{
	CodeValidation:         http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeRateLimitExceeded:  http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeInternal:           http.StatusInternalServerError,
}

// AppError is the one error type every core package returns across a
// package boundary once it knows the caller-facing shape of the failure.
type AppError struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Status returns the HTTP status code for e.Code.
func (e *AppError) Status() int {
	if s, ok := codeStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an AppError with no wrapped cause.
func New(code Code, message string, details any) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// Wrap constructs an AppError carrying cause for logging, without leaking
// cause's text into the client-visible Message (§7: "user-facing message is
// generic").
func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

// Unauthorized is a 401 shorthand.
func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, nil)
}

// Forbidden is a 403 shorthand carrying the required/missing/granted scope
// sets (§4.7 step 7).
func Forbidden(required, missing, granted []string) *AppError {
	return New(CodeForbidden, "insufficient scope", map[string]any{
		"required": required,
		"missing":  missing,
		"granted":  granted,
	})
}

// RateLimited is a 429 shorthand carrying the limiter's reported state.
func RateLimited(limit int, reset, retryAfter int64) *AppError {
	return New(CodeRateLimitExceeded, "rate limit exceeded", map[string]any{
		"limit":      limit,
		"reset":      reset,
		"retryAfter": retryAfter,
	})
}

// Timeout is the 500 TIMEOUT shape named in §5 ("on deadline the response
// is 500 INTERNAL_ERROR with code:\"TIMEOUT\"").
func Timeout() *AppError {
	return New(CodeInternal, "request timed out", map[string]any{"code": "TIMEOUT"})
}

// FromInternal maps the core's internal validation error types — never
// surfaced raw per §7 — into a client-facing VALIDATION_ERROR AppError. Any
// other error becomes a generic INTERNAL_ERROR wrapping the cause.
func FromInternal(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var roErr *validator.ReadOnlyViolation
	if errors.As(err, &roErr) {
		return New(CodeValidation, "expression is not read-only", map[string]any{
			"keyword": roErr.Keyword,
		})
	}

	var unkErr *validator.UnknownSymbol
	if errors.As(err, &unkErr) {
		return New(CodeValidation, "unknown symbol in expression", map[string]any{
			"name":        unkErr.Name,
			"suggestions": unkErr.Suggestions,
		})
	}

	var kwErr *validator.InvalidLeadingKeyword
	if errors.As(err, &kwErr) {
		return New(CodeValidation, "expression is not read-only", map[string]any{
			"found": kwErr.Found,
		})
	}

	var schemaErr *schema.SchemaError
	if errors.As(err, &schemaErr) {
		return New(CodeValidation, "schema error", map[string]any{
			"message": schemaErr.Message,
		})
	}

	if errors.Is(err, bitemporal.ErrInvalidInterval) {
		return New(CodeValidation, "invalid interval", map[string]any{
			"message": err.Error(),
		})
	}

	return Wrap(CodeInternal, "internal error", err)
}
