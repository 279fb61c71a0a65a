package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a transcription failure. The HTTP layer maps each
// kind to its own status code.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindTooLarge     ErrorKind = "too_large"
	KindUnavailable  ErrorKind = "unavailable"
	KindBackend      ErrorKind = "backend"
	KindTimeout      ErrorKind = "timeout"
	KindBusy         ErrorKind = "busy"
	KindLocal        ErrorKind = "local"
	KindStorage      ErrorKind = "storage"
	KindNotFound     ErrorKind = "not_found"
)

// TranscriptionError represents provider-specific errors
type TranscriptionError struct {
	Kind      ErrorKind `json:"kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Provider  string    `json:"provider,omitempty"`
	Retryable bool      `json:"retryable"`
	Err       error     `json:"-"`
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// NewError builds a TranscriptionError
func NewError(kind ErrorKind, code, providerName, message string, cause error) *TranscriptionError {
	return &TranscriptionError{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Provider:  providerName,
		Retryable: kind == KindUnavailable,
		Err:       cause,
	}
}

// InvalidInput reports a malformed request
func InvalidInput(providerName, message string) *TranscriptionError {
	return NewError(KindInvalidInput, "invalid_input", providerName, message, nil)
}

// Unavailable reports a connectivity failure talking to a backend
func Unavailable(providerName, message string, cause error) *TranscriptionError {
	return NewError(KindUnavailable, "upstream_unavailable", providerName, message, cause)
}

// BackendFailure reports an error the backend itself returned
func BackendFailure(providerName, message string) *TranscriptionError {
	return NewError(KindBackend, "transcription_failed", providerName, message, nil)
}

// Timeout reports an exhausted wait budget
func Timeout(providerName, message string, cause error) *TranscriptionError {
	return NewError(KindTimeout, "transcription_timeout", providerName, message, cause)
}

// LocalFailure reports a failed local model invocation
func LocalFailure(providerName, message string, cause error) *TranscriptionError {
	return NewError(KindLocal, "local_inference_failed", providerName, message, cause)
}

// StorageFailure reports a temp-file I/O problem
func StorageFailure(message string, cause error) *TranscriptionError {
	return NewError(KindStorage, "storage_error", "", message, cause)
}

// AsTranscriptionError extracts a TranscriptionError from err. Context
// errors are classified as timeouts; anything else returns nil.
func AsTranscriptionError(err error) *TranscriptionError {
	if err == nil {
		return nil
	}

	var te *TranscriptionError
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout("", "transcription deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return Timeout("", "transcription canceled", err)
	}
	return nil
}

// KindOf returns the error kind, or "" for unclassified errors
func KindOf(err error) ErrorKind {
	if te := AsTranscriptionError(err); te != nil {
		return te.Kind
	}
	return ""
}

// ContextError converts a context termination into a TranscriptionError
// attributed to providerName, or returns nil while ctx is still live.
func ContextError(ctx context.Context, providerName string) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(providerName, "transcription deadline exceeded", err)
	}
	return Timeout(providerName, "transcription canceled", err)
}
