package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FieldError pinpoints a single invalid declaration field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Fields  []FieldError           `json:"field_errors,omitempty"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering the kernel failure taxonomy.
var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "tenant context required")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrValidation = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")

	ErrFileRequired        = New("FILE_REQUIRED", http.StatusUnprocessableEntity, "at least one attachment is required")
	ErrFileHashMissing     = New("FILE_HASH_MISSING", http.StatusUnprocessableEntity, "attachment content hash has not been computed")
	ErrPayloadRequired     = New("PAYLOAD_REQUIRED", http.StatusUnprocessableEntity, "a validated payload is required")
	ErrExternalRefRequired = New("EXTERNAL_REFERENCE_ID_REQUIRED", http.StatusUnprocessableEntity, "external_reference_id is required")
	ErrSnapshotRequired    = New("SNAPSHOT_TIMESTAMP_REQUIRED", http.StatusUnprocessableEntity, "snapshot_timestamp is required")

	ErrBindingImmutable    = New("BINDING_FIELDS_IMMUTABLE", http.StatusConflict, "binding fields cannot change after creation")
	ErrSealedImmutable     = New("SEALED_IMMUTABLE", http.StatusConflict, "record is sealed and cannot be modified")
	ErrIdempotencyConflict = New("IDEMPOTENCY_CONFLICT", http.StatusConflict, "external reference already sealed with a different payload")
	ErrTransitionBlocked   = New("STATE_TRANSITION_BLOCKED", http.StatusBadRequest, "state transition not allowed")

	ErrIngestionNotAllowed = New("INGESTION_NOT_ALLOWED", http.StatusForbidden, "no active ingestion profile for tenant and dataset type")

	ErrStorageTimeout = New("STORAGE_TIMEOUT", http.StatusServiceUnavailable, "storage operation timed out, retry later")

	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error. Context deadline failures
// surface as the retryable storage-timeout code so callers never mistake a
// transient fault for a permanent rejection.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrStorageTimeout.Code, ErrStorageTimeout.Status, ErrStorageTimeout.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithFields returns a copy of the error carrying field-level detail.
func WithFields(err *Error, fields ...FieldError) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Fields = append(append([]FieldError(nil), clone.Fields...), fields...)
	return &clone
}

// WithDetail returns a copy of the error carrying a structured detail payload.
func WithDetail(err *Error, detail map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Detail = detail
	return &clone
}
