package audience

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the session identifier is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyMessage indicates a turn was submitted without any text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUnknownStage indicates the state named a stage the engine does not know.
	ErrUnknownStage = errors.New("unknown stage")
)

// Error codes used in AgentError and in HTTP error responses.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeSession    = "SESSION_NOT_FOUND"
	ErrCodeLLM        = "LLM_ERROR"
	ErrCodeCatalog    = "CATALOG_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// AgentError is a typed error with a code and an optional cause.
type AgentError struct {
	Code    string
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a typed error with the given code.
func NewAgentError(code, message string, cause error) *AgentError {
	return &AgentError{Code: code, Message: message, Err: cause}
}

// NewLLMError wraps a language service failure.
func NewLLMError(message string, cause error) *AgentError {
	return NewAgentError(ErrCodeLLM, message, cause)
}

// NewCatalogError wraps a catalog lookup failure.
func NewCatalogError(message string, cause error) *AgentError {
	return NewAgentError(ErrCodeCatalog, message, cause)
}

// NewValidationError wraps invalid caller input.
func NewValidationError(message string, cause error) *AgentError {
	return NewAgentError(ErrCodeValidation, message, cause)
}

// IsLLMError reports whether err originated in the language service.
func IsLLMError(err error) bool {
	var agentErr *AgentError
	return errors.As(err, &agentErr) && agentErr.Code == ErrCodeLLM
}
