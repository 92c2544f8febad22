package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeConflict   ErrorCode = "CONFLICT"

	// Catalog processing errors
	ErrCodeParse              ErrorCode = "PARSE_ERROR"
	ErrCodeMissingColumn      ErrorCode = "MISSING_COLUMN"
	ErrCodeUnclassified       ErrorCode = "UNCLASSIFIED_ARTICLE"
	ErrCodeAgreementDeleted   ErrorCode = "AGREEMENT_DELETED"
	ErrCodeAmbiguousReference ErrorCode = "AMBIGUOUS_REFERENCE"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeUnsupportedFormat  ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeFileTooLarge       ErrorCode = "FILE_TOO_LARGE"

	// Infrastructure errors
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeQueueError    ErrorCode = "QUEUE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// NotFound reports a referenced resource that does not exist
func NotFound(resource, key string) *AppError {
	return New(ErrCodeNotFound,
		fmt.Sprintf("%s not found: %s", resource, key),
		http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("key", key)
}

// Catalog processing errors

func ParseError(message string) *AppError {
	return New(ErrCodeParse, message, http.StatusBadRequest)
}

func ParseErrorf(format string, args ...interface{}) *AppError {
	return ParseError(fmt.Sprintf(format, args...))
}

func MissingColumn(column string) *AppError {
	return New(ErrCodeMissingColumn,
		fmt.Sprintf("required column %q not found in header", column),
		http.StatusBadRequest).WithDetails("column", column)
}

func Unclassified(typeLabel string) *AppError {
	return New(ErrCodeUnclassified,
		fmt.Sprintf("article type %q matches no classification rule", typeLabel),
		http.StatusUnprocessableEntity)
}

func AgreementDeleted(reference string) *AppError {
	return New(ErrCodeAgreementDeleted,
		fmt.Sprintf("agreement %s is deleted", reference),
		http.StatusConflict).WithDetails("reference", reference)
}

func AmbiguousReference(reference string, candidates []string) *AppError {
	return New(ErrCodeAmbiguousReference,
		fmt.Sprintf("agreement reference %q matches %d agreements", reference, len(candidates)),
		http.StatusConflict).WithDetails("candidates", candidates)
}

func InvalidTransition(from, to string) *AppError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("transition %s -> %s is not allowed", from, to),
		http.StatusConflict)
}

func UnsupportedFormat(format string) *AppError {
	return New(ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported file format: %s", format),
		http.StatusBadRequest)
}

func FileTooLarge(maxSize int64) *AppError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("file size exceeds maximum allowed size of %d MB", maxSize),
		http.StatusBadRequest)
}

// Infrastructure errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed", http.StatusInternalServerError)
}

func QueueError(err error) *AppError {
	return Wrap(err, ErrCodeQueueError, "queue operation failed", http.StatusInternalServerError)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether the first AppError in the chain carries code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

func IsParseError(err error) bool {
	return HasCode(err, ErrCodeParse)
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}
