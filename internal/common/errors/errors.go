// internal/common/errors/errors.go

// Package errors provides standardized error values for the clinical decision pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionState    ErrorCode = "SESSION_STATE_CONFLICT"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeTermNotFound    ErrorCode = "TERM_NOT_FOUND"

	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeIndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"

	ErrCodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeParseFailed       ErrorCode = "PARSE_FAILED"

	ErrCodeArtifactPersistFailed    ErrorCode = "ARTIFACT_PERSIST_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError is the only pipeline failure surfaced to callers as-is.
func NewSessionNotFoundError(sessionID string) *StandardError {
	e := newError(ErrCodeSessionNotFound, "Triage session not found", fmt.Sprintf("sessionId: %s", sessionID), false)
	e.Metadata = map[string]interface{}{"sessionId": sessionID}
	return e
}

// NewSessionStateError reports an operation the session's current state forbids.
func NewSessionStateError(sessionID, state, details string) *StandardError {
	e := newError(ErrCodeSessionState, "Operation not allowed in current session state", details, false)
	e.Metadata = map[string]interface{}{"sessionId": sessionID, "state": state}
	return e
}

// NewTermNotFoundError reports a symptom the ontology cannot resolve.
func NewTermNotFoundError(term string) *StandardError {
	e := newError(ErrCodeTermNotFound, "Symptom term not found", fmt.Sprintf("term: %s", term), false)
	e.Metadata = map[string]interface{}{"term": term}
	return e
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Request validation failed", details, false)
}

func NewModelUnavailableError(path string, err error) *StandardError {
	details := fmt.Sprintf("modelPath: %s", path)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	return newError(ErrCodeModelUnavailable, "Risk classifier unavailable", details, false)
}

func NewIndexUnavailableError(details string) *StandardError {
	return newError(ErrCodeIndexUnavailable, "Vector index unavailable", details, false)
}

func NewEmbeddingFailedError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Embedding service error", err.Error(), true)
}

func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Reasoning service error", err.Error(), true)
}

func NewGenerationTimeoutError() *StandardError {
	return newError(ErrCodeGenerationTimeout, "Reasoning service timeout", "", true)
}

func NewParseFailedError(details string) *StandardError {
	return newError(ErrCodeParseFailed, "Reasoning output did not match the assessment schema", details, false)
}

func NewArtifactPersistFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeArtifactPersistFailed, "Failed to persist index artifacts",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Escalation alert delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Internal server error", err.Error(), false)
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := As(err)
	return ok && se.Code == code
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEmbeddingFailed,
		ErrCodeGenerationFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeArtifactPersistFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps an error code onto the status returned by the API layer.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSessionNotFound, ErrCodeTermNotFound:
		return http.StatusNotFound
	case ErrCodeSessionState:
		return http.StatusConflict
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeGenerationTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeIndexUnavailable, ErrCodeModelUnavailable, ErrCodeDatabaseConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "MODEL"):
		return "SCORING"
	case strings.Contains(codeStr, "INDEX") || strings.Contains(codeStr, "EMBEDDING") ||
		strings.Contains(codeStr, "ARTIFACT") || strings.Contains(codeStr, "SEARCH"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "PARSE"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
