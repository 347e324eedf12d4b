package provider

import (
	"context"
	"io"
)

// Transport executes a completion request against the remote endpoint.
//
// Implementations map non-2xx statuses to *BadResponseError, a context that
// ends mid-flight to ErrCancelled, and a missing HTTP response to
// ErrInvalidResponse. They never return a partial body together with an error.
type Transport interface {
	// Do performs a blocking exchange and returns the full success body.
	Do(ctx context.Context, req Request) ([]byte, error)

	// Stream opens a streaming exchange and returns the live success body.
	// The caller owns the returned reader and must close it.
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}
