/*
Package openai implements provider.Transport for OpenAI compatible chat
completion APIs on top of the openai-go client.

The transport posts a provider.Request as JSON to chat/completions below the
configured base URL and returns either the full body (Do) or the live
server-sent event stream (Stream). Decoding is left to the provider package.
The client never retries; a failed exchange is reported to the caller as is.

# Errors

  - A non-2xx status becomes a *provider.BadResponseError. The detail is the
    message of a {"error":{"message":...}} envelope when the body has one,
    the raw body otherwise. For streams every line of the error body is
    drained first.
  - A context that ends before or during the exchange becomes
    provider.ErrCancelled; no partial body is returned.

# Configuration

	transport, err := openai.New(openai.DefaultBaseURL, os.Getenv("OPENAI_API_KEY"),
		openai.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}),
		openai.WithHeader("OpenAI-Organization", "org-id"),
	)

The credential is never logged. Debug logs identify it by a short SHA-256
fingerprint.
*/
package openai
