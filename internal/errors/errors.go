package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a Clerk error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrNoMatch           ErrorCode = "NO_MATCH"            // 422
	ErrInvalidCatalog    ErrorCode = "INVALID_CATALOG"     // 500
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrService           ErrorCode = "SERVICE_ERROR"       // 502
	ErrMalformedAIOutput ErrorCode = "MALFORMED_AI_OUTPUT" // 502
)

// ClerkError represents a structured error with code, status, and details.
type ClerkError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *ClerkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ClerkError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ClerkError {
	return &ClerkError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing scope, catalog, template or artifact.
func NewNotFound(kind, identifier string) *ClerkError {
	return &ClerkError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewInvalidCatalog creates an error for a catalog with malformed descriptor entries.
func NewInvalidCatalog(scope string, problems []string) *ClerkError {
	return &ClerkError{
		Code:    ErrInvalidCatalog,
		Status:  500,
		Message: fmt.Sprintf("invalid catalog for %s: %s", scope, strings.Join(problems, "; ")),
		Details: map[string]any{"scope": scope, "problems": problems},
	}
}

// NewNoMatch creates a 422 error when the model picked a filename absent from the catalog.
func NewNoMatch(selected string) *ClerkError {
	return &ClerkError{
		Code:    ErrNoMatch,
		Status:  422,
		Message: fmt.Sprintf("selected template %q is not in the catalog", selected),
		Details: map[string]any{"selected": selected},
	}
}

// NewService creates a 502 error for gateway transport, quota or auth failures.
func NewService(err error) *ClerkError {
	msg := "language model service unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &ClerkError{
		Code:    ErrService,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewServiceStatus creates a ServiceError for a non-2xx upstream response.
func NewServiceStatus(status int, msg string) *ClerkError {
	return &ClerkError{
		Code:    ErrService,
		Status:  502,
		Message: fmt.Sprintf("language model returned HTTP %d: %s", status, msg),
		Details: map[string]any{"upstream_status": status},
	}
}

// NewMalformedAIOutput creates a 502 error when structured model output cannot be used.
func NewMalformedAIOutput(reason string) *ClerkError {
	return &ClerkError{
		Code:    ErrMalformedAIOutput,
		Status:  502,
		Message: fmt.Sprintf("model returned unusable output: %s", reason),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ClerkError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ClerkError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// AsService returns err unchanged when it is already a ClerkError and wraps it
// as a ServiceError otherwise. Gateway implementations outside this module
// (test stubs, alternative providers) can return plain errors.
func AsService(err error) error {
	if err == nil {
		return nil
	}
	var cErr *ClerkError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewService(err)
}

// Is checks if an error is a ClerkError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ClerkError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// From extracts a ClerkError from err, converting unknown errors to INTERNAL.
func From(err error) *ClerkError {
	var cErr *ClerkError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewInternal(err)
}
