package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses, batch summaries and internal error handling.
const (
	ErrCodeFetch        = "FETCH_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeSearch       = "SEARCH_FAILED"
	ErrCodeUnrecognized = "UNRECOGNIZED_NODE"
	ErrCodeRecovery     = "RECOVERY_FAILED"
	ErrCodeIncomplete   = "INCOMPLETE_RECORD"
	ErrCodeDuplicate    = "DUPLICATE_CONTENT"
	ErrCodeExhausted    = "CANDIDATES_EXHAUSTED"
	ErrCodeStore        = "STORE_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeCanceled     = "CANCELED"

	// Model errors.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
	ErrCodeTimeout        = "LLM_TIMEOUT"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PipelineError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PipelineError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *PipelineError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the outermost PipelineError in err's chain,
// or ErrCodeInternal when there is none. A nil error yields "".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}

// AsPipelineError returns err as a *PipelineError, wrapping it as an
// internal error if it is not one already.
func AsPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return NewPipelineError(ErrCodeInternal, err.Error(), err)
}

// IsStoreError reports whether err originates from the catalog store.
func IsStoreError(err error) bool {
	return CodeOf(err) == ErrCodeStore
}
