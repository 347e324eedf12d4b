package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/chatter"
	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/provider/openai"
	"github.com/casualjim/chatter/tokenizer"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func setupEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		msgs := gjson.GetBytes(body, "messages").Array()
		require.NotEmpty(t, msgs)
		prompt := msgs[len(msgs)-1].Get("content").String()
		reply := "echo: " + prompt

		if gjson.GetBytes(body, "stream").Bool() {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, word := range strings.SplitAfter(reply, " ") {
				line, _ := sjson.Set(`{"choices":[{"delta":{}}]}`, "choices.0.delta.content", word)
				fmt.Fprintf(w, "data: %s\n\n", line)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		resp, _ := sjson.Set(`{"choices":[{"message":{"role":"assistant"}}]}`, "choices.0.message.content", reply)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server) *chatter.Client {
	t.Helper()
	transport, err := openai.New(server.URL, "test-key")
	require.NoError(t, err)
	client, err := chatter.New(transport, chatter.WithTokenizer(tokenizer.Words))
	require.NoError(t, err)
	return client
}

func TestREPL(t *testing.T) {
	color.NoColor = true

	t.Run("streaming conversation", func(t *testing.T) {
		client := newTestClient(t, setupEchoServer(t))
		var out bytes.Buffer
		r := newREPL(client, strings.NewReader("hi there\n\nhow are you\nexit\n"), &out)
		r.stream = true

		require.NoError(t, r.Run(context.Background()))

		assert.Contains(t, out.String(), "echo: hi there")
		assert.Contains(t, out.String(), "echo: how are you")
		assert.Equal(t, []messages.Message{
			messages.User("hi there"),
			messages.Assistant("echo: hi there"),
			messages.User("how are you"),
			messages.Assistant("echo: how are you"),
		}, client.HistoryList())
	})

	t.Run("blocking conversation", func(t *testing.T) {
		client := newTestClient(t, setupEchoServer(t))
		var out bytes.Buffer
		r := newREPL(client, strings.NewReader("hi\n"), &out)
		r.render = func(s string) (string, error) { return "**" + s + "**", nil }

		require.NoError(t, r.Run(context.Background()))

		assert.Contains(t, out.String(), "**echo: hi**")
		assert.Contains(t, out.String(), "Exiting...")
		assert.Len(t, client.HistoryList(), 2)
	})

	t.Run("commands", func(t *testing.T) {
		client := newTestClient(t, setupEchoServer(t))
		var out bytes.Buffer
		r := newREPL(client, strings.NewReader("hi\n/history\n/clear\nexit\n"), &out)

		require.NoError(t, r.Run(context.Background()))

		assert.Contains(t, out.String(), "user: hi")
		assert.Contains(t, out.String(), "assistant: echo: hi")
		assert.Contains(t, out.String(), "history cleared")
		assert.Empty(t, client.HistoryList())
	})

	t.Run("errors are printed and the loop continues", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server)
		var out bytes.Buffer
		r := newREPL(client, strings.NewReader("hi\nagain\n"), &out)
		r.stream = true

		require.NoError(t, r.Run(context.Background()))
		assert.Equal(t, 2, strings.Count(out.String(), "rate limited"))
		assert.Empty(t, client.HistoryList())
	})
}

func TestREPL_CancelWhileWaitingForInput(t *testing.T) {
	color.NoColor = true

	client := newTestClient(t, setupEchoServer(t))
	in, stdin := io.Pipe()
	t.Cleanup(func() { _ = stdin.Close() })

	var out syncBuffer
	r := newREPL(client, in, &out)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "User: ") }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx was cancelled")
	}
	assert.Contains(t, out.String(), "Exiting...")
	assert.Empty(t, client.HistoryList())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCheckpointFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, found, err := loadCheckpoint(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("save and load", func(t *testing.T) {
		client := newTestClient(t, setupEchoServer(t))
		_, err := client.SendMessage(context.Background(), "hi")
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "conversation.json")
		require.NoError(t, saveCheckpoint(path, client.Checkpoint()))

		cp, found, err := loadCheckpoint(path)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, client.ID(), cp.ID())
		assert.Equal(t, client.HistoryList(), cp.Messages())
	})
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("OPENAI_DEFAULT_MODEL", "")
		cfg, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, openai.DefaultBaseURL, cfg.baseURL)
		assert.Equal(t, openai.DefaultModel, cfg.model)
		assert.True(t, cfg.stream)
		assert.Equal(t, 4096, cfg.budget)
	})

	t.Run("model from environment", func(t *testing.T) {
		t.Setenv("OPENAI_DEFAULT_MODEL", "gpt-4o")
		cfg, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", cfg.model)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := parseFlags([]string{"--base-url", "http://localhost:8080/v1", "-m", "local", "--budget", "1024", "--stream=false", "--history", "conv.json"})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/v1", cfg.baseURL)
		assert.Equal(t, "local", cfg.model)
		assert.Equal(t, 1024, cfg.budget)
		assert.False(t, cfg.stream)
		assert.Equal(t, "conv.json", cfg.historyFile)
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		_, err := parseFlags([]string{"extra"})
		assert.ErrorContains(t, err, "unexpected argument")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	_, err = parseLevel("loud")
	assert.Error(t, err)
}
