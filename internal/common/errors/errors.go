// Package errors provides the standardized error taxonomy for the
// conversation engine.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Input validation
	ErrCodeInvalidSessionToken ErrorCode = "INVALID_SESSION_TOKEN"
	ErrCodeEmptyUtterance      ErrorCode = "EMPTY_UTTERANCE"

	// Session store
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeStoreReadFailed  ErrorCode = "STORE_READ_FAILED"
	ErrCodeTurnInProgress   ErrorCode = "TURN_IN_PROGRESS"

	// Completion gateway
	ErrCodeCompletionFailed  ErrorCode = "COMPLETION_FAILED"
	ErrCodeCompletionTimeout ErrorCode = "COMPLETION_TIMEOUT"

	// Side channels
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeIndexingFailed         ErrorCode = "INDEXING_FAILED"
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

// Is lets errors.Is match two StandardErrors by code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidSessionTokenError rejects a turn before any state mutation.
func NewInvalidSessionTokenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSessionToken,
		Message:   "Session token is missing or malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyUtteranceError rejects a turn with no customer text.
func NewEmptyUtteranceError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyUtterance,
		Message:   "Utterance text is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError signals a lookup miss where lazy creation is not allowed.
func NewSessionNotFoundError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   token,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteError is terminal for the turn: a write that cannot be
// performed must never silently report success.
func NewStoreWriteError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreWriteFailed,
		Message:   "Session store write failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreReadError is used where a read cannot safely degrade to empty.
func NewStoreReadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreReadFailed,
		Message:   "Session store read failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTurnInProgressError signals a concurrent turn for the same session.
func NewTurnInProgressError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTurnInProgress,
		Message:   "Another turn is already being processed for this session",
		Details:   token,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionFailedError wraps a failed or malformed completion call.
func NewCompletionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionFailed,
		Message:   "Text completion call failed",
		Details:   details,
		Retryable: false, // never auto-retried: duplicate side effects
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionTimeoutError wraps a completion call that exceeded its deadline.
func NewCompletionTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionTimeout,
		Message:   "Text completion call timed out",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendError reports a failed transfer notice. Never fatal for a turn.
func NewNotificationSendError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Agent transfer notification failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexingError reports a failed projection index write. Never fatal for a turn.
func NewIndexingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexingFailed,
		Message:   "Session projection indexing failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidSessionToken, ErrCodeEmptyUtterance:
		return "validation"
	case ErrCodeSessionNotFound, ErrCodeStoreWriteFailed, ErrCodeStoreReadFailed, ErrCodeTurnInProgress:
		return "store"
	case ErrCodeCompletionFailed, ErrCodeCompletionTimeout:
		return "completion"
	case ErrCodeNotificationSendFailed, ErrCodeIndexingFailed:
		return "side_channel"
	}
	return "internal"
}

// IsRetryable reports whether the caller may safely re-submit the turn.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}
