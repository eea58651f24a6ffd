// Package errors provides standardized error handling for the report engine.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Submission / query errors surfaced to callers.
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	ErrCodeJobNotFound          ErrorCode = "JOB_NOT_FOUND"
	ErrCodeJobNotReady          ErrorCode = "JOB_NOT_READY"
	ErrCodeJobCancelled         ErrorCode = "JOB_CANCELLED"
	ErrCodeEmptyCandidatePool   ErrorCode = "EMPTY_CANDIDATE_POOL"

	// Per-source errors, absorbed by the orchestrator and recorded as outcomes.
	ErrCodeSourceTimeout     ErrorCode = "SOURCE_TIMEOUT"
	ErrCodeSourceFetchFailed ErrorCode = "SOURCE_FETCH_FAILED"
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// Infrastructure errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeJobStoreFailed           ErrorCode = "JOB_STORE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationFailedError creates a non-retryable profile validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Applicant profile validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationInvalidError creates a non-retryable rule table invariant error.
func NewConfigurationInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Scoring configuration invariant violated",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable unknown job id error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Report job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotReadyError creates a non-retryable error for result queries on pending jobs.
func NewJobNotReadyError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotReady,
		Message:   "Report job has no results yet",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobCancelledError creates a non-retryable error for jobs cancelled by the caller.
func NewJobCancelledError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobCancelled,
		Message:   "Report job cancelled by caller",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyCandidatePoolError creates a non-retryable error for jobs with no usable pool.
func NewEmptyCandidatePoolError(poolRef string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyCandidatePool,
		Message:   "No candidates available for matching",
		Details:   fmt.Sprintf("poolRef: %s", poolRef),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceTimeoutError creates a retryable per-source timeout error.
func NewSourceTimeoutError(source, candidateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceTimeout,
		Message:   fmt.Sprintf("Data source '%s' timed out", source),
		Details:   fmt.Sprintf("candidateId: %s", candidateID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceFetchFailedError creates a retryable per-source fetch error.
func NewSourceFetchFailedError(source, candidateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceFetchFailed,
		Message:   fmt.Sprintf("Data source '%s' fetch failed", source),
		Details:   fmt.Sprintf("candidateId: %s, error: %s", candidateID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable candidate search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Candidate search query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobStoreFailedError creates a retryable job store error.
func NewJobStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobStoreFailed,
		Message:   "Job store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSourceFetchFailed,
		ErrCodeSourceUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeJobStoreFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeSourceTimeout:
		return 2

	default:
		return 0 // Validation and lookup errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsSourceErrorCode reports whether the code belongs to a per-source failure
// that the orchestrator absorbs rather than surfacing to the caller.
func IsSourceErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeSourceTimeout, ErrCodeSourceFetchFailed, ErrCodeSourceUnavailable:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SOURCE"):
		return "SOURCE"
	case strings.Contains(codeStr, "JOB"):
		return "JOB"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "SEARCH"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "CONFIGURATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError converts any error to a StandardError, wrapping unknown
// errors with the given fallback code.
func AsStandardError(err error, fallback ErrorCode) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      fallback,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: IsRetryableErrorCode(fallback),
		Timestamp: time.Now().UTC(),
	}
}
