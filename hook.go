package chatter

import (
	"context"
	"log/slog"
	"slices"

	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/pkg/slogx"
	"github.com/casualjim/chatter/provider"
	json "github.com/goccy/go-json"
)

// Hook observes the exchanges a Client performs.
//
// Every method must be implemented, there is no no-op base to embed. Hooks
// run on the caller's goroutine, so concurrent calls on a Client invoke them
// concurrently.
//
//	type printer struct{}
//
//	func (printer) OnUserPrompt(ctx context.Context, msg messages.Message)       {}
//	func (printer) OnAssistantMessage(ctx context.Context, msg messages.Message) { fmt.Println() }
//	func (printer) OnError(ctx context.Context, err error)                       { fmt.Println(err) }
//	func (printer) OnAssistantChunk(ctx context.Context, ev provider.StreamEvent) {
//		if d, ok := ev.(provider.ContentDelta); ok {
//			fmt.Print(d.Text)
//		}
//	}
type Hook interface {
	// OnUserPrompt is called once the request for a prompt has been built.
	OnUserPrompt(context.Context, messages.Message)

	// OnAssistantChunk is called for every event decoded from a stream: each
	// provider.ContentDelta and the final provider.End.
	OnAssistantChunk(context.Context, provider.StreamEvent)

	// OnAssistantMessage is called after a complete response was committed to history.
	OnAssistantMessage(context.Context, messages.Message)

	// OnError is called with the error a send or stream fails with. History
	// is left as it was before the prompt.
	OnError(context.Context, error)
}

// maxLoggedMessage bounds the message JSON the logging hook writes.
const maxLoggedMessage = 2048

// LoggingHook returns a Hook that writes every event to logger.
// A nil logger uses slog.Default().
func LoggingHook(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingHook{logger: logger}
}

type loggingHook struct {
	logger *slog.Logger
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func (h *loggingHook) OnUserPrompt(ctx context.Context, msg messages.Message) {
	h.logger.InfoContext(ctx, "User prompt", slogx.Truncated("message", mustJSON(msg), maxLoggedMessage))
}

func (h *loggingHook) OnAssistantChunk(ctx context.Context, ev provider.StreamEvent) {
	h.logger.DebugContext(ctx, "Assistant chunk", "event", mustJSON(ev))
}

func (h *loggingHook) OnAssistantMessage(ctx context.Context, msg messages.Message) {
	h.logger.InfoContext(ctx, "Assistant message", slogx.Truncated("message", mustJSON(msg), maxLoggedMessage))
}

func (h *loggingHook) OnError(ctx context.Context, err error) {
	h.logger.ErrorContext(ctx, "completion error", slogx.Error(err))
}

// NewCompositeHook returns a Hook that calls each of hooks in order.
func NewCompositeHook(hooks ...Hook) Hook {
	return CompositeHook(hooks)
}

// CompositeHook fans every event out to each of its hooks in order.
type CompositeHook []Hook

func (c CompositeHook) OnUserPrompt(ctx context.Context, msg messages.Message) {
	for h := range slices.Values(c) {
		h.OnUserPrompt(ctx, msg)
	}
}

func (c CompositeHook) OnAssistantChunk(ctx context.Context, ev provider.StreamEvent) {
	for h := range slices.Values(c) {
		h.OnAssistantChunk(ctx, ev)
	}
}

func (c CompositeHook) OnAssistantMessage(ctx context.Context, msg messages.Message) {
	for h := range slices.Values(c) {
		h.OnAssistantMessage(ctx, msg)
	}
}

func (c CompositeHook) OnError(ctx context.Context, err error) {
	for h := range slices.Values(c) {
		h.OnError(ctx, err)
	}
}
