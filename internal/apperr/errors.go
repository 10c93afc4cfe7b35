package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidInput is returned when the provided input fails validation.
// Use errors.Is(err, apperr.ErrInvalidInput) to detect validation failures uniformly.
var ErrInvalidInput = errors.New("invalid input")

// ErrRequestFailed is returned when an outbound request (DoH, raw DNS) fails at the
// transport level or the upstream responds with a non-success status.
var ErrRequestFailed = errors.New("request failed")

// ErrTimeout is wrapped by every error produced by Timeout.
var ErrTimeout = errors.New("timeout")

// Type is the coarse error class exposed in the error envelope.
type Type string

// Error types reported to API clients.
const (
	TypeAPI            Type = "api_error"
	TypeInvalidRequest Type = "invalid_request_error"
	TypeValidation     Type = "validation_error"
	TypeRateLimit      Type = "rate_limit_error"
)

// Error codes reported to API clients.
const (
	CodeInvalidEmailFormat  = "invalid_email_format"
	CodeFileTooLarge        = "file_too_large"
	CodeUnsupportedFormat   = "unsupported_format"
	CodeNoEmailsFound       = "no_emails_found"
	CodeExtractionFailed    = "extraction_failed"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodeInternal            = "internal_error"
	CodeTimeout             = "timeout_error"
	CodeDNSResolutionFailed = "dns_resolution_failed"
	CodeInvalidParameters   = "invalid_parameters"
	CodeMissingFileID       = "missing_file_id"
	CodeInvalidFileID       = "invalid_file_id"
	CodeFileNotFound        = "file_not_found"
	CodeDownloadFailed      = "download_failed"
)

// Error is a classified application error carrying everything the HTTP
// boundary needs to render the error envelope.
type Error struct {
	Type    Type
	Code    string
	Message string
	Status  int
	Param   string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed client input (422).
func Validation(message, param string) *Error {
	return &Error{
		Type:    TypeValidation,
		Code:    CodeInvalidEmailFormat,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Param:   param,
		Err:     ErrInvalidInput,
	}
}

// FileProcessing reports an unusable upload: unsupported, oversized, empty or unparseable (400).
func FileProcessing(code, message string) *Error {
	return &Error{
		Type:    TypeInvalidRequest,
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
		Param:   "file",
		Err:     ErrInvalidInput,
	}
}

// InvalidRequest reports a malformed request that is not an email validation failure (400).
func InvalidRequest(code, message, param string) *Error {
	return &Error{
		Type:    TypeInvalidRequest,
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
		Param:   param,
		Err:     ErrInvalidInput,
	}
}

// NotFound reports a missing resource (404).
func NotFound(code, message string) *Error {
	return &Error{
		Type:    TypeInvalidRequest,
		Code:    code,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// RateLimited reports a client that exceeded its request budget (429).
func RateLimited(message string) *Error {
	if message == "" {
		message = "Too many requests"
	}
	return &Error{
		Type:    TypeRateLimit,
		Code:    CodeRateLimitExceeded,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// Timeout reports an upstream deadline that expired (504).
func Timeout(message string) *Error {
	return &Error{
		Type:    TypeAPI,
		Code:    CodeTimeout,
		Message: message,
		Status:  http.StatusGatewayTimeout,
		Err:     ErrTimeout,
	}
}

// Internal wraps an unexpected failure (500).
func Internal(code, message string, err error) *Error {
	if code == "" {
		code = CodeInternal
	}
	return &Error{
		Type:    TypeAPI,
		Code:    code,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the status code for err. Unclassified errors map to 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Wrapf classifies an arbitrary error as internal unless it already carries a classification.
func Wrapf(err error, code, format string, args ...any) *Error {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(code, fmt.Sprintf(format, args...), err)
}
