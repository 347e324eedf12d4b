package openai

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casualjim/chatter/pkg/slogx"
	"github.com/casualjim/chatter/provider"
	"github.com/fogfish/opts"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const completionsPath = "chat/completions"

var reservedHeaders = map[string]bool{
	"Authorization": true,
	"Content-Type":  true,
}

var _ provider.Transport = (*Transport)(nil)

// Transport talks to an OpenAI compatible chat completions API through the
// openai-go client. The SDK sends the request and the caller decodes the raw
// body. It is safe for concurrent use.
type Transport struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger
	client     *oai.Client
}

var (
	// WithHTTPClient replaces the HTTP client, http.DefaultClient by default.
	WithHTTPClient = opts.ForName[Transport, *http.Client]("httpClient")
	// WithLogger sets the logger for request tracing.
	WithLogger = opts.ForName[Transport, *slog.Logger]("logger")
)

// WithHeader adds a header to every request. Content-Type and Authorization
// are always set by the transport and cannot be overridden.
func WithHeader(key, value string) opts.Option[Transport] {
	return opts.Type[Transport](func(t *Transport) error {
		if t.headers == nil {
			t.headers = make(http.Header)
		}
		t.headers.Add(key, value)
		return nil
	})
}

// New creates a transport for the API rooted at baseURL, like
// https://api.openai.com/v1, authenticating with the bearer credential apiKey.
// Requests are posted to chat/completions below baseURL and never retried.
func New(baseURL, apiKey string, options ...opts.Option[Transport]) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	t := &Transport{
		baseURL: u,
		apiKey:  apiKey,
	}
	if err := opts.Apply(t, options); err != nil {
		return nil, err
	}
	if t.httpClient == nil {
		t.httpClient = http.DefaultClient
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.logger = t.logger.With(slogx.LoggerName("openai.transport"))

	requestOptions := make([]option.RequestOption, 0, len(t.headers)+5)
	for key, values := range t.headers {
		if reservedHeaders[key] {
			continue
		}
		for _, v := range values {
			requestOptions = append(requestOptions, option.WithHeaderAdd(key, v))
		}
	}
	requestOptions = append(requestOptions,
		option.WithBaseURL(u.String()),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(t.httpClient),
		option.WithMiddleware(t.trace),
	)
	t.client = oai.NewClient(requestOptions...)
	return t, nil
}

// Endpoint returns the URL requests are posted to.
func (t *Transport) Endpoint() string {
	return t.baseURL.JoinPath(completionsPath).String()
}

// Do performs a blocking completion and returns the success body.
func (t *Transport) Do(ctx context.Context, req provider.Request) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, provider.Cancelled(ctx)
	}

	req.Stream = false
	resp, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if ctx.Err() != nil {
		return nil, provider.Cancelled(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !provider.IsSuccess(resp.StatusCode) {
		return nil, t.badResponse(ctx, resp.StatusCode, body)
	}
	return body, nil
}

// Stream opens a streaming completion and returns the live event stream.
//
// On a non-2xx status the body lines are drained into a single error detail
// before the error is returned.
func (t *Transport) Stream(ctx context.Context, req provider.Request) (io.ReadCloser, error) {
	if ctx.Err() != nil {
		return nil, provider.Cancelled(ctx)
	}

	req.Stream = true
	resp, err := t.post(ctx, req, option.WithHeader("Accept", "text/event-stream"))
	if err != nil {
		return nil, err
	}

	if provider.IsSuccess(resp.StatusCode) {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	return nil, t.drainedBadResponse(ctx, resp.StatusCode, resp.Body)
}

// post sends req and returns the untouched response. Error statuses reported
// by the SDK are mapped to *provider.BadResponseError.
func (t *Transport) post(ctx context.Context, req provider.Request, extra ...option.RequestOption) (*http.Response, error) {
	body, err := req.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	t.logger.DebugContext(ctx, "sending completion request",
		slog.String("model", req.Model),
		slog.Int("messages", len(req.Messages)),
		slog.Bool("stream", req.Stream),
	)

	var resp *http.Response
	err = t.client.Post(ctx, completionsPath, bytes.NewReader(body), &resp, extra...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, provider.Cancelled(ctx)
		}
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, t.apiError(ctx, apiErr, req.Stream)
		}
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return nil, provider.ErrInvalidResponse
	}
	return resp, nil
}

func (t *Transport) apiError(ctx context.Context, apiErr *oai.Error, stream bool) error {
	if apiErr.Response == nil || apiErr.Response.Body == nil {
		return &provider.BadResponseError{StatusCode: apiErr.StatusCode, Detail: apiErr.Message, Type: apiErr.Type}
	}
	defer apiErr.Response.Body.Close()

	if stream {
		return t.drainedBadResponse(ctx, apiErr.StatusCode, apiErr.Response.Body)
	}
	body, err := io.ReadAll(apiErr.Response.Body)
	if ctx.Err() != nil {
		return provider.Cancelled(ctx)
	}
	if err != nil {
		return fmt.Errorf("read error body: %w", err)
	}
	return t.badResponse(ctx, apiErr.StatusCode, body)
}

func (t *Transport) drainedBadResponse(ctx context.Context, statusCode int, r io.Reader) error {
	detail, err := drainLines(ctx, r)
	if err != nil {
		return err
	}
	return t.badResponse(ctx, statusCode, []byte(detail))
}

func (t *Transport) badResponse(ctx context.Context, statusCode int, body []byte) error {
	bad := provider.NewBadResponse(statusCode, body)
	t.logger.DebugContext(ctx, "completion failed", slog.Int("status", bad.StatusCode), slog.String("detail", bad.Detail))
	return bad
}

func (t *Transport) trace(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()
	t.logger.DebugContext(ctx, "posting", slog.String("url", req.URL.String()), slogx.Fingerprint("key", t.apiKey))

	resp, err := next(req)
	if err != nil {
		t.logger.DebugContext(ctx, "completion request failed", slog.Duration("duration", time.Since(start)), slogx.Error(err))
		return resp, err
	}
	t.logger.DebugContext(ctx, "received completion response",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// drainLines reads every line of r into one string, checking ctx between lines.
func drainLines(ctx context.Context, r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return "", provider.Cancelled(ctx)
		}
		b.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", provider.Cancelled(ctx)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("read error body: %w", err)
		}
	}
	return b.String(), nil
}
