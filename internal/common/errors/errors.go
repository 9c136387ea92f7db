// Package errors provides the typed failure taxonomy shared by the
// provider gateway, the semantic retriever, and the aggregator.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Startup / configuration failures. Logged once, then degraded to
	// empty results instead of failing every call.
	ErrCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
	ErrCodeIndexUnavailable      ErrorCode = "INDEX_UNAVAILABLE"
	ErrCodeEmbedderUnavailable   ErrorCode = "EMBEDDER_UNAVAILABLE"

	// Transient failures, local to a single call.
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderHTTPStatus  ErrorCode = "PROVIDER_HTTP_STATUS"
	ErrCodeProviderParseFailed ErrorCode = "PROVIDER_PARSE_FAILED"
	ErrCodeGeocodingFailed     ErrorCode = "GEOCODING_FAILED"
	ErrCodeEmbeddingFailed     ErrorCode = "EMBEDDING_FAILED"
	ErrCodeIndexQueryFailed    ErrorCode = "INDEX_QUERY_FAILED"

	// Not errors in the user-visible sense; represented as empty results.
	ErrCodeNoMatch ErrorCode = "NO_MATCH"
)

// StandardError represents a structured engine error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Transient bool      `json:"transient"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsTransient reports whether err is a StandardError local to one call.
// Configuration failures are not transient; they persist for the
// lifetime of the process.
func IsTransient(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Transient
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StandardError); ok {
		return se.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewProviderNotConfiguredError creates a non-transient configuration error.
func NewProviderNotConfiguredError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderNotConfigured,
		Message:   "Provider has no usable configuration",
		Details:   fmt.Sprintf("provider: %s", provider),
		Transient: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexUnavailableError creates a non-transient vector index error.
func NewIndexUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexUnavailable,
		Message:   "Vector index unavailable at startup",
		Details:   err.Error(),
		Transient: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbedderUnavailableError creates a non-transient embedding engine error.
func NewEmbedderUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbedderUnavailable,
		Message:   "Embedding engine unavailable at startup",
		Details:   err.Error(),
		Transient: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a transient timeout error for one call.
func NewProviderTimeoutError(provider string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Provider call exceeded timeout",
		Details:   fmt.Sprintf("provider: %s, timeout: %s", provider, timeout),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderHTTPStatusError creates a transient error for a non-2xx response.
func NewProviderHTTPStatusError(provider string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderHTTPStatus,
		Message:   "Provider returned non-success status",
		Details:   fmt.Sprintf("provider: %s, status: %d", provider, status),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderParseFailedError creates a transient error for a malformed payload.
func NewProviderParseFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderParseFailed,
		Message:   "Provider payload could not be parsed",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeocodingFailedError creates a transient geocoding error.
func NewGeocodingFailedError(candidate string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodingFailed,
		Message:   "Geocoding lookup failed",
		Details:   fmt.Sprintf("candidate: %s, error: %s", candidate, err.Error()),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingFailedError creates a transient embedding error.
func NewEmbeddingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "Query embedding failed",
		Details:   err.Error(),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexQueryFailedError creates a transient index query error.
func NewIndexQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexQueryFailed,
		Message:   "Vector index query failed",
		Details:   err.Error(),
		Transient: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoMatchError marks a well-formed lookup that legitimately found
// nothing. Callers convert it to an empty result, never to a failure.
func NewNoMatchError(source string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoMatch,
		Message:   "No data matched the query",
		Details:   fmt.Sprintf("source: %s", source),
		Transient: false,
		Timestamp: time.Now().UTC(),
	}
}
