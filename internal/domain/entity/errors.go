package entity

import (
	"errors"
	"time"
)

type ErrorCode string

const (
	CodeRateLimitExceeded          ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeUnsupportedProtocolVersion ErrorCode = "UNSUPPORTED_PROTOCOL_VERSION"
	CodeAuthRequired               ErrorCode = "AUTH_REQUIRED"
	CodeInvalidRequest             ErrorCode = "INVALID_REQUEST"
	CodeNotFound                   ErrorCode = "NOT_FOUND"
	CodeContextFetchError          ErrorCode = "CONTEXT_FETCH_ERROR"
	CodeGenerationError            ErrorCode = "GENERATION_ERROR"
	CodeProcessingError            ErrorCode = "PROCESSING_ERROR"
	CodeBatchProcessingError       ErrorCode = "BATCH_PROCESSING_ERROR"
)

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// GatewayError is the typed failure returned across the usecase boundary.
// Details always carries a timestamp.
type GatewayError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	cause   error
}

func NewGatewayError(code ErrorCode, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Details: map[string]any{"timestamp": Timestamp(time.Now())},
		cause:   cause,
	}
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.cause
}

// With sets a detail value and returns the receiver for chaining.
func (e *GatewayError) With(key string, value any) *GatewayError {
	e.Details[key] = value
	return e
}

func (e *GatewayError) Envelope() ErrorEnvelope {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	if _, ok := details["timestamp"]; !ok {
		details["timestamp"] = Timestamp(time.Now())
	}
	return ErrorEnvelope{Code: e.Code, Message: e.Message, Details: details}
}

// AsGatewayError returns the first GatewayError in err's chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first GatewayError in err's chain, or
// CodeProcessingError for any other non-nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if gwErr, ok := AsGatewayError(err); ok {
		return gwErr.Code
	}
	return CodeProcessingError
}

func NewRateLimitError(d RateLimitDecision) *GatewayError {
	return NewGatewayError(CodeRateLimitExceeded, "Rate limit exceeded", nil).
		With("reset_time", Timestamp(d.ResetAt)).
		With("retry_after", d.RetryAfter.Seconds()).
		With("requests_allowed", d.Limit).
		With("period_seconds", int(d.Period/time.Second))
}

func NewUnsupportedVersionError(version string) *GatewayError {
	return NewGatewayError(CodeUnsupportedProtocolVersion, "Unsupported protocol version: "+version, nil).
		With("supported_versions", SupportedProtocolVersions())
}

func NewAuthRequiredError() *GatewayError {
	return NewGatewayError(CodeAuthRequired, "MCP authentication required", nil)
}

func NewInvalidRequestError(message string) *GatewayError {
	return NewGatewayError(CodeInvalidRequest, message, nil)
}

func NewContextFetchError(cause error) *GatewayError {
	return NewGatewayError(CodeContextFetchError, "Error fetching context: "+causeMessage(cause), cause)
}

func NewGenerationError(cause error) *GatewayError {
	return NewGatewayError(CodeGenerationError, "Error generating response: "+causeMessage(cause), cause)
}

func NewProcessingError(cause error) *GatewayError {
	return NewGatewayError(CodeProcessingError, causeMessage(cause), cause)
}

// NewBatchProcessingError reports the failure of the item at index and keeps
// the item's own code as cause_code.
func NewBatchProcessingError(cause error, index int) *GatewayError {
	return NewGatewayError(CodeBatchProcessingError, causeMessage(cause), cause).
		With("failed_index", index).
		With("cause_code", string(CodeOf(cause)))
}

func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if gwErr, ok := AsGatewayError(err); ok {
		return gwErr.Message
	}
	return err.Error()
}
