package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeInvalidChunkConfig indicates invalid chunking parameters.
	// This is a caller error and is fatal for the ingest call.
	ErrCodeInvalidChunkConfig ErrorCode = "INVALID_CHUNK_CONFIG"
	// ErrCodeEmbeddingUnavailable indicates the embedding capability failed.
	ErrCodeEmbeddingUnavailable ErrorCode = "EMBEDDING_UNAVAILABLE"
	// ErrCodeGenerationUnavailable indicates the generative model failed.
	ErrCodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	// ErrCodeSearchUnavailable indicates the external search capability failed.
	ErrCodeSearchUnavailable ErrorCode = "SEARCH_UNAVAILABLE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested entity does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConversationClosed indicates a turn was sent to a closed conversation.
	ErrCodeConversationClosed ErrorCode = "CONVERSATION_CLOSED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Sentinels for the recoverable capability failures. Each has a defined
// fallback: skip the document during ingest, use the template response,
// or skip escalation, respectively.
var (
	ErrInvalidChunkConfig    = &PipelineError{Code: ErrCodeInvalidChunkConfig, Message: "invalid chunk configuration"}
	ErrEmbeddingUnavailable  = &PipelineError{Code: ErrCodeEmbeddingUnavailable, Message: "embedding capability unavailable"}
	ErrGenerationUnavailable = &PipelineError{Code: ErrCodeGenerationUnavailable, Message: "generative model unavailable"}
	ErrSearchUnavailable     = &PipelineError{Code: ErrCodeSearchUnavailable, Message: "external search unavailable"}
)

// PipelineError represents a structured error for pipeline operations.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches any PipelineError carrying the same code, so wrapped capability
// failures compare equal to their sentinel via errors.Is.
func (e *PipelineError) Is(target error) bool {
	var pe *PipelineError
	if errors.As(target, &pe) {
		return e.Code == pe.Code
	}
	return false
}

// InvalidChunkConfig creates an invalid chunk config error.
func InvalidChunkConfig(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidChunkConfig, Message: msg}
}

// EmbeddingUnavailable wraps a failed embedding call.
func EmbeddingUnavailable(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeEmbeddingUnavailable, Message: "embedding capability unavailable", Cause: cause}
}

// GenerationUnavailable wraps a failed generative model call.
func GenerationUnavailable(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeGenerationUnavailable, Message: "generative model unavailable", Cause: cause}
}

// SearchUnavailable wraps a failed external search call.
func SearchUnavailable(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeSearchUnavailable, Message: "external search unavailable", Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeNotFound, Message: msg}
}

// ConversationClosed creates a conversation closed error.
func ConversationClosed(id string) *PipelineError {
	return &PipelineError{Code: ErrCodeConversationClosed, Message: fmt.Sprintf("conversation %s is closed", id)}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *PipelineError {
	return &PipelineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
