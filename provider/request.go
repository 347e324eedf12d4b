package provider

import (
	"errors"
	"fmt"

	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/tokenizer"
	json "github.com/goccy/go-json"
)

// DefaultTokenBudget is the token ceiling used when none is configured.
const DefaultTokenBudget = 4096

// Request is the body sent to the completion endpoint.
type Request struct {
	Model       string             `json:"model"`
	Temperature float64            `json:"temperature"`
	Messages    []messages.Message `json:"messages"`
	Stream      bool               `json:"stream"`
}

// Marshal encodes the request as wire JSON.
func (r Request) Marshal() ([]byte, error) {
	if r.Messages == nil {
		r.Messages = []messages.Message{}
	}
	return json.Marshal(r)
}

// BuildParams configures BuildRequest.
type BuildParams struct {
	// Prompt is the new user message.
	Prompt string
	// Instructions become the system message at the head of every request.
	Instructions string
	Model        string
	Temperature  float64
	Stream       bool
	// Budget is the maximum token count across all message contents.
	Budget int

	// Prevents unkeyed literals
	_ struct{}
}

// BuildRequest composes the message list for a new prompt:
// the system message, then history oldest first, then the prompt.
//
// While the tokens over all contents exceed the budget, the oldest history
// entry is dropped. The system message and the prompt are never dropped, so
// when history runs out and the request is still too large ErrPromptTooLarge
// is returned.
func BuildRequest(history []messages.Message, params BuildParams, counter tokenizer.Counter) (Request, error) {
	if params.Budget <= 0 {
		return Request{}, fmt.Errorf("token budget must be positive, got %d", params.Budget)
	}
	if counter == nil {
		return Request{}, errors.New("token counter is required")
	}

	system := messages.System(params.Instructions)
	prompt := messages.User(params.Prompt)

	candidates := make([]messages.Message, 0, len(history)+2)
	for start := 0; ; start++ {
		candidates = candidates[:0]
		candidates = append(candidates, system)
		candidates = append(candidates, history[start:]...)
		candidates = append(candidates, prompt)

		count := counter.Count(messages.Contents(candidates))
		if count <= params.Budget {
			break
		}
		if start == len(history) {
			return Request{}, fmt.Errorf("%w: %d tokens exceed the budget of %d", ErrPromptTooLarge, count, params.Budget)
		}
	}

	return Request{
		Model:       params.Model,
		Temperature: params.Temperature,
		Messages:    candidates,
		Stream:      params.Stream,
	}, nil
}
