package provider

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// CompletionResult is the outcome of a blocking completion.
type CompletionResult struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

type completionEnvelope struct {
	Choices []struct {
		Message *struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// DecodeResponse parses a blocking completion body.
// The text is the first choice's message content and usage is optional.
// Malformed JSON or a missing choices[0].message is ErrDecode.
func DecodeResponse(data []byte) (CompletionResult, error) {
	var env completionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(env.Choices) == 0 {
		return CompletionResult{}, fmt.Errorf("%w: response has no choices", ErrDecode)
	}
	choice := env.Choices[0]
	if choice.Message == nil {
		return CompletionResult{}, fmt.Errorf("%w: missing choices[0].message", ErrDecode)
	}
	return CompletionResult{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        env.Usage,
	}, nil
}

// ErrorEnvelope is the body of a non-2xx response.
type ErrorEnvelope struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// DecodeErrorEnvelope extracts {"error":{"message","type"}} from data.
// It reports false when the body is not shaped that way.
func DecodeErrorEnvelope(data []byte) (ErrorEnvelope, bool) {
	if !gjson.ValidBytes(data) {
		return ErrorEnvelope{}, false
	}
	msg := gjson.GetBytes(data, "error.message")
	if msg.Type != gjson.String {
		return ErrorEnvelope{}, false
	}
	return ErrorEnvelope{
		Message: msg.String(),
		Type:    gjson.GetBytes(data, "error.type").String(),
	}, true
}
