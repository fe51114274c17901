package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Stable error codes shared by every provider-independent failure.
const (
	CodeModelNotFound         = "MODEL_NOT_FOUND"
	CodeProviderModelMismatch = "PROVIDER_MODEL_MISMATCH"
	CodeUnsupportedProvider   = "UNSUPPORTED_PROVIDER"
	CodeInvalidProvider       = "INVALID_PROVIDER"
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeStreamParseError      = "STREAM_PARSE_ERROR"
)

// Error is the canonical failure shape every adapter and the dispatch core
// produce. It is created once at the point of failure and propagated up
// unchanged; nothing in this layer retries.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details carries field-level validation messages when Code is
	// VALIDATION_ERROR.
	Details map[string]string `json:"details,omitempty"`

	// Log holds the originating error for server-side logging only.
	Log error `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Log
}

// NewError creates a canonical error.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithLog attaches the originating error for logging and returns e.
func (e *Error) WithLog(err error) *Error {
	e.Log = err
	return e
}

// ModelNotFoundError reports a model id absent from the registry.
func ModelNotFoundError(modelID string) *Error {
	return NewError(http.StatusBadRequest, CodeModelNotFound,
		fmt.Sprintf("Model '%s' not found", modelID))
}

// ProviderMismatchError reports an explicit provider hint that contradicts
// the model's owning provider.
func ProviderMismatchError(modelID string, actual, requested Provider) *Error {
	return NewError(http.StatusBadRequest, CodeProviderModelMismatch,
		fmt.Sprintf("Model '%s' belongs to provider '%s', not '%s'", modelID, actual, requested))
}

// UnsupportedProviderError reports a registry/adapter desync. It should be
// unreachable in a consistent build.
func UnsupportedProviderError(p Provider) *Error {
	return NewError(http.StatusInternalServerError, CodeUnsupportedProvider,
		fmt.Sprintf("Unsupported provider: %s", p))
}

// ValidationError wraps a field->message map from the request validator.
func ValidationError(fields map[string]string) *Error {
	e := NewError(http.StatusBadRequest, CodeValidationError, "Validation Error")
	e.Details = fields
	return e
}

// InternalError is the catch-all for unexpected server failures.
func InternalError(message string, err error) *Error {
	return NewError(http.StatusInternalServerError, CodeInternalError, message).WithLog(err)
}

// Per-provider upstream failure constructors. The code is prefixed with the
// upper-cased provider tag so clients can match on a machine-stable string.

func providerCode(p Provider, suffix string) string {
	return strings.ToUpper(string(p)) + "_" + suffix
}

// UnauthorizedError maps an upstream 401.
func UnauthorizedError(p Provider, message string) *Error {
	return NewError(http.StatusUnauthorized, providerCode(p, "UNAUTHORIZED"), message)
}

// RateLimitError maps an upstream 429.
func RateLimitError(p Provider, message string) *Error {
	return NewError(http.StatusTooManyRequests, providerCode(p, "RATE_LIMIT"), message)
}

// UpstreamBadRequestError maps an upstream 400, passing the upstream message
// through when one was parseable.
func UpstreamBadRequestError(p Provider, message string) *Error {
	return NewError(http.StatusBadRequest, providerCode(p, "BAD_REQUEST"), message)
}

// UpstreamError is the catch-all for any other upstream failure: network
// errors, malformed responses, and unmapped status codes.
func UpstreamError(p Provider, status int, message string, err error) *Error {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	return NewError(status, providerCode(p, "API_ERROR"), message).WithLog(err)
}

// ErrorEnvelope is the wire shape of every failure: {"error": {...}}.
type ErrorEnvelope struct {
	Error *ErrorBody `json:"error"`
}

// ErrorBody is the inner error object. Stack is populated only in the
// development environment.
type ErrorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

// Envelope converts an Error into its wire shape.
func (e *Error) Envelope() ErrorEnvelope {
	return ErrorEnvelope{Error: &ErrorBody{
		Message: e.Message,
		Code:    e.Code,
		Details: e.Details,
	}}
}
