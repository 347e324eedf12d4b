package chatter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/casualjim/chatter/internal/shorttermmemory"
	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/pkg/slogx"
	"github.com/casualjim/chatter/provider"
	"github.com/casualjim/chatter/provider/openai"
	"github.com/casualjim/chatter/tokenizer"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// Checkpoint is a serializable snapshot of a client's conversation.
type Checkpoint = shorttermmemory.Checkpoint

// Client holds one conversation with a completion endpoint.
//
// All history reads and writes go through a single mutex. The network
// exchange runs outside of it, so a call may build and send its request
// while another call is still waiting on its response. A Client is safe for
// concurrent use.
type Client struct {
	mu      sync.Mutex
	history *shorttermmemory.History

	transport    provider.Transport
	counter      tokenizer.Counter
	model        string
	temperature  float64
	instructions string
	budget       int
	hooks        CompositeHook
	logger       *slog.Logger
}

// New creates a client sending its requests through transport.
//
// Without options the client uses openai.DefaultModel, a temperature of 0,
// empty instructions, provider.DefaultTokenBudget and a tiktoken counter for
// the model.
func New(transport provider.Transport, options ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}

	c := &Client{
		history:   shorttermmemory.New(),
		transport: transport,
		model:     openai.DefaultModel,
		budget:    provider.DefaultTokenBudget,
	}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}

	if c.model == "" {
		return nil, errors.New("model is required")
	}
	if c.budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", c.budget)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slogx.LoggerName("chatter.client"))
	if c.counter == nil {
		c.counter = tokenizer.Lazy(c.model, c.logger)
	}
	return c, nil
}

// SendMessage sends text as the next user prompt and waits for the full
// response. On success the prompt and the response are appended to the
// history. On failure the history is left as it was.
func (c *Client) SendMessage(ctx context.Context, text string) (provider.CompletionResult, error) {
	req, err := c.buildRequest(ctx, text, false)
	if err != nil {
		return provider.CompletionResult{}, c.fail(ctx, err)
	}
	c.hooks.OnUserPrompt(ctx, messages.User(text))

	body, err := c.transport.Do(ctx, req)
	if err != nil {
		return provider.CompletionResult{}, c.fail(ctx, err)
	}

	result, err := provider.DecodeResponse(body)
	if err != nil {
		return provider.CompletionResult{}, c.fail(ctx, err)
	}

	c.commit(ctx, text, result.Text, result.Usage)
	return result, nil
}

// SendMessageStream sends text as the next user prompt and returns the
// response as a sequence of text fragments.
//
// Errors that happen before the response starts, such as a rejected status,
// are returned directly. Errors while reading are yielded by the sequence,
// which then ends.
//
// The sequence is single-pass and reads from the connection only when the
// next fragment is requested. Once it is exhausted, the concatenated
// fragments are appended to the history together with the prompt. Breaking
// out of the loop or cancelling ctx closes the connection and leaves the
// history as it was. The sequence must be ranged over to release the
// connection. A second iteration yields provider.ErrStreamConsumed.
func (c *Client) SendMessageStream(ctx context.Context, text string) (iter.Seq2[string, error], error) {
	req, err := c.buildRequest(ctx, text, true)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	c.hooks.OnUserPrompt(ctx, messages.User(text))

	body, err := c.transport.Stream(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	var consumed atomic.Bool
	return func(yield func(string, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield("", provider.ErrStreamConsumed)
			return
		}
		defer body.Close()

		decoder := provider.NewStreamDecoder(body)
		for {
			event, err := decoder.Next(ctx)
			if err != nil {
				yield("", c.fail(ctx, err))
				return
			}

			switch ev := event.(type) {
			case provider.ContentDelta:
				c.hooks.OnAssistantChunk(ctx, ev)
				if !yield(ev.Text, nil) {
					c.logger.DebugContext(ctx, "stream abandoned by consumer", slog.Int("received", len(decoder.Text())))
					return
				}
			case provider.End:
				if skipped := decoder.Skipped(); skipped > 0 {
					c.logger.WarnContext(ctx, "skipped oversized stream lines", slog.Int("skipped", skipped), slog.Int("max_bytes", provider.MaxLineSize))
				}
				c.hooks.OnAssistantChunk(ctx, ev)
				c.commit(ctx, text, decoder.Text(), nil)
				return
			}
		}
	}, nil
}

// DeleteHistoryList removes every message from the history.
func (c *Client) DeleteHistoryList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Clear()
}

// ReplaceHistoryList overwrites the history with msgs.
//
// msgs is taken as given: callers must pass user and assistant messages in
// alternation, oldest first, starting with a user message. A system message
// in msgs would be sent in addition to the configured instructions.
func (c *Client) ReplaceHistoryList(msgs []messages.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Replace(msgs)
}

// HistoryList returns a copy of the history, oldest first.
func (c *Client) HistoryList() []messages.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Messages()
}

// ID identifies the conversation.
func (c *Client) ID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.ID()
}

// Usage returns the token usage reported by the endpoint for the exchanges
// so far. Streamed exchanges report no usage.
func (c *Client) Usage() provider.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Usage()
}

// Checkpoint snapshots the conversation for persistence.
func (c *Client) Checkpoint() Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Checkpoint()
}

// Restore replaces the conversation with a checkpoint.
func (c *Client) Restore(cp Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Restore(cp)
}

func (c *Client) buildRequest(ctx context.Context, text string, stream bool) (provider.Request, error) {
	if ctx.Err() != nil {
		return provider.Request{}, provider.Cancelled(ctx)
	}

	c.mu.Lock()
	history := c.history.Messages()
	c.mu.Unlock()

	req, err := provider.BuildRequest(history, provider.BuildParams{
		Prompt:       text,
		Instructions: c.instructions,
		Model:        c.model,
		Temperature:  c.temperature,
		Stream:       stream,
		Budget:       c.budget,
	}, c.counter)
	if err != nil {
		return provider.Request{}, err
	}

	if evicted := len(history) + 2 - len(req.Messages); evicted > 0 {
		c.logger.DebugContext(ctx, "evicted history to fit the token budget",
			slog.Int("evicted", evicted),
			slog.Int("kept", len(req.Messages)-2),
			slog.Int("budget", c.budget),
		)
	}
	return req, nil
}

func (c *Client) commit(ctx context.Context, prompt, response string, usage *provider.Usage) {
	c.mu.Lock()
	c.history.Append(prompt, response)
	c.history.AddUsage(usage)
	c.mu.Unlock()

	c.hooks.OnAssistantMessage(ctx, messages.Assistant(response))
}

func (c *Client) fail(ctx context.Context, err error) error {
	c.hooks.OnError(ctx, err)
	return err
}
