package chatter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/provider"
	"github.com/tidwall/sjson"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []provider.Request

	do     func(context.Context, provider.Request) ([]byte, error)
	stream func(context.Context, provider.Request) (io.ReadCloser, error)
}

func (f *fakeTransport) record(req provider.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeTransport) Requests() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Request(nil), f.requests...)
}

func (f *fakeTransport) Do(ctx context.Context, req provider.Request) ([]byte, error) {
	f.record(req)
	return f.do(ctx, req)
}

func (f *fakeTransport) Stream(ctx context.Context, req provider.Request) (io.ReadCloser, error) {
	f.record(req)
	return f.stream(ctx, req)
}

func lastPrompt(req provider.Request) string {
	return req.Messages[len(req.Messages)-1].Content
}

func completionBody(text string) []byte {
	body := `{"object":"chat.completion","choices":[{"message":{}}],"usage":{}}`
	body, _ = sjson.Set(body, "choices.0.message.role", "assistant")
	body, _ = sjson.Set(body, "choices.0.message.content", text)
	body, _ = sjson.Set(body, "choices.0.finish_reason", "stop")
	body, _ = sjson.Set(body, "usage.prompt_tokens", 3)
	body, _ = sjson.Set(body, "usage.completion_tokens", 2)
	body, _ = sjson.Set(body, "usage.total_tokens", 5)
	return []byte(body)
}

func chunkLine(text string) string {
	line, _ := sjson.Set(`{"object":"chat.completion.chunk","choices":[{"delta":{}}]}`, "choices.0.delta.content", text)
	return provider.DataPrefix + " " + line + "\n"
}

func sseBody(fragments ...string) string {
	var b strings.Builder
	b.WriteString(": keep-alive\n\n")
	for _, f := range fragments {
		b.WriteString(chunkLine(f))
		b.WriteString("\n")
	}
	b.WriteString(`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n")
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *trackingBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func echoTransport() *fakeTransport {
	return &fakeTransport{
		do: func(_ context.Context, req provider.Request) ([]byte, error) {
			return completionBody("echo: " + lastPrompt(req)), nil
		},
		stream: func(_ context.Context, req provider.Request) (io.ReadCloser, error) {
			words := strings.Fields("echo: " + lastPrompt(req))
			for i := range words[:len(words)-1] {
				words[i] += " "
			}
			return &trackingBody{Reader: strings.NewReader(sseBody(words...))}, nil
		},
	}
}

func exchange(user, assistant string) []messages.Message {
	return []messages.Message{messages.User(user), messages.Assistant(assistant)}
}

func numbered(prefix string, i int) string {
	return fmt.Sprintf("%s %d", prefix, i)
}
