package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidResponse is returned when the transport produced something that
	// is not an HTTP response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrBadResponse matches every *BadResponseError with errors.Is.
	ErrBadResponse = errors.New("bad response")

	// ErrDecode is returned when a success body is not a well formed completion.
	ErrDecode = errors.New("decode failure")

	// ErrPromptTooLarge is returned when the system message and the new prompt
	// alone exceed the token budget.
	ErrPromptTooLarge = errors.New("prompt too large")

	// ErrCancelled is returned when the caller's context ended mid-flight.
	// The context error is wrapped alongside it.
	ErrCancelled = errors.New("cancelled")

	// ErrStreamConsumed is returned when a completion stream is iterated twice.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// BadResponseError reports a non-2xx status from the completion endpoint.
type BadResponseError struct {
	StatusCode int
	// Detail is the error envelope message when the body had one, the raw body otherwise.
	Detail string
	// Type is the error envelope type, if any.
	Type string
}

func (e *BadResponseError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("bad response: status %d (%s): %s", e.StatusCode, e.Type, e.Detail)
	}
	return fmt.Sprintf("bad response: status %d: %s", e.StatusCode, e.Detail)
}

// Is makes errors.Is(err, ErrBadResponse) true for any status.
func (e *BadResponseError) Is(target error) bool {
	return target == ErrBadResponse
}

// NewBadResponse builds the error for a non-2xx status from its body.
// The envelope message wins when the body is shaped as {"error":{"message":...}}.
func NewBadResponse(statusCode int, body []byte) *BadResponseError {
	if env, ok := DecodeErrorEnvelope(body); ok {
		return &BadResponseError{StatusCode: statusCode, Detail: env.Message, Type: env.Type}
	}
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = http.StatusText(statusCode)
	}
	return &BadResponseError{StatusCode: statusCode, Detail: detail}
}

// IsSuccess reports whether the status code is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}

// Cancelled wraps the reason ctx ended with ErrCancelled.
func Cancelled(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
