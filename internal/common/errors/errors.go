// Package errors provides standardized error handling for the research
// pipeline and its external collaborators.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Provider search errors. These are always contained at the adapter
	// boundary and surface only as empty result lists.
	ErrCodeProviderSearchFailed ErrorCode = "PROVIDER_SEARCH_FAILED"
	ErrCodeProviderTimeout      ErrorCode = "PROVIDER_TIMEOUT"

	// Completion provider errors.
	ErrCodeCompletionRateLimited     ErrorCode = "COMPLETION_RATE_LIMITED"
	ErrCodeCompletionOverloaded      ErrorCode = "COMPLETION_OVERLOADED"
	ErrCodeCompletionUnavailable     ErrorCode = "COMPLETION_UNAVAILABLE"
	ErrCodeCompletionFailed          ErrorCode = "COMPLETION_FAILED"
	ErrCodeCompletionMalformedOutput ErrorCode = "COMPLETION_MALFORMED_OUTPUT"

	// Stage contract errors.
	ErrCodeSchemaValidationFailed   ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeMetadataExtractionFailed ErrorCode = "METADATA_EXTRACTION_FAILED"
	ErrCodePriceSynthesisFailed     ErrorCode = "PRICE_SYNTHESIS_FAILED"

	// Storage errors.
	ErrCodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeDatabaseWriteFailed ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeDatabaseReadFailed  ErrorCode = "DATABASE_READ_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewProviderSearchFailedError wraps a single provider's search failure.
// Callers convert this into an empty result list rather than propagating.
func NewProviderSearchFailedError(platform string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderSearchFailed,
		Message:   fmt.Sprintf("provider '%s' search failed", platform),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionRateLimitedError creates a retryable rate-limit error (429).
func NewCompletionRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionRateLimited,
		Message:   "completion provider rate limited the request",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionOverloadedError creates a retryable overload error (529).
func NewCompletionOverloadedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionOverloaded,
		Message:   "completion provider is overloaded",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionUnavailableError creates a retryable error for 5xx responses
// and connection resets.
func NewCompletionUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionUnavailable,
		Message:   "completion provider unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionFailedError creates a non-retryable completion error.
func NewCompletionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionFailed,
		Message:   "completion provider request failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionMalformedOutputError signals that no parseable JSON object
// was found in the completion text. Never retried.
func NewCompletionMalformedOutputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionMalformedOutput,
		Message:   "no JSON object found in completion response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaValidationFailedError signals that a parsed completion object
// violated the stage's output contract.
func NewSchemaValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidationFailed,
		Message:   "completion output failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMetadataExtractionFailedError signals that the extraction stage
// produced output that could not be decoded into product metadata.
func NewMetadataExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataExtractionFailed,
		Message:   "product metadata extraction failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPriceSynthesisFailedError signals that the price synthesis stage
// produced output that could not be decoded into a price analysis.
func NewPriceSynthesisFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePriceSynthesisFailed,
		Message:   "cross-platform price synthesis failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError signals a missing session/data-type key.
func NewSessionNotFoundError(sessionID, dataType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "no stored data for session",
		Details:   fmt.Sprintf("sessionId: %s, dataType: %s", sessionID, dataType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseWriteFailedError creates a retryable store write error.
func NewDatabaseWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseWriteFailed,
		Message:   "session store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseReadFailedError creates a retryable store read error.
func NewDatabaseReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseReadFailed,
		Message:   "session store read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf returns the ErrorCode of err, or "" when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return ""
}
