package errors

import (
	"net/http"

	"audio-transcriber/internal/app/api/provider"
)

// ErrorKind represents different types of API errors
type ErrorKind string

const (
	KindBadRequest         ErrorKind = "bad_request"
	KindTooLarge           ErrorKind = "too_large"
	KindRequestTimeout     ErrorKind = "request_timeout"
	KindNotFound           ErrorKind = "not_found"
	KindBadGateway         ErrorKind = "bad_gateway"
	KindGatewayTimeout     ErrorKind = "gateway_timeout"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindInternal           ErrorKind = "internal"
)

// APIError is the JSON body of every failed request
type APIError struct {
	Kind      ErrorKind `json:"-"`
	Message   string    `json:"error"`
	Code      string    `json:"code"`
	Provider  string    `json:"provider,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error kind
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRequestTimeout:
		return http.StatusRequestTimeout
	case KindNotFound:
		return http.StatusNotFound
	case KindBadGateway:
		return http.StatusBadGateway
	case KindGatewayTimeout:
		return http.StatusGatewayTimeout
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(code, message string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Code:    code,
		Message: message,
	}
}

// NewTooLargeError creates an upload size error
func NewTooLargeError(message string) *APIError {
	return &APIError{
		Kind:    KindTooLarge,
		Code:    "upload_too_large",
		Message: message,
	}
}

// NewUploadTimeoutError reports a request body that did not arrive before
// the server read deadline
func NewUploadTimeoutError(message string) *APIError {
	return &APIError{
		Kind:    KindRequestTimeout,
		Code:    "upload_timeout",
		Message: message,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *APIError {
	return &APIError{
		Kind:    KindInternal,
		Code:    "internal_error",
		Message: message,
	}
}

var kindMapping = map[provider.ErrorKind]ErrorKind{
	provider.KindInvalidInput: KindBadRequest,
	provider.KindTooLarge:     KindTooLarge,
	provider.KindNotFound:     KindNotFound,
	provider.KindUnavailable:  KindBadGateway,
	provider.KindBackend:      KindBadGateway,
	provider.KindTimeout:      KindGatewayTimeout,
	provider.KindBusy:         KindServiceUnavailable,
	provider.KindLocal:        KindInternal,
	provider.KindStorage:      KindInternal,
}

// FromError converts any error into an APIError. Transcription errors keep
// their message and code; anything unclassified becomes an opaque 500.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}

	te := provider.AsTranscriptionError(err)
	if te == nil {
		return NewInternalError("Internal server error")
	}

	kind, ok := kindMapping[te.Kind]
	if !ok {
		kind = KindInternal
	}
	return &APIError{
		Kind:     kind,
		Code:     te.Code,
		Message:  te.Message,
		Provider: te.Provider,
	}
}
