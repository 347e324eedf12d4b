package chatter

import (
	"log/slog"

	"github.com/casualjim/chatter/tokenizer"
	"github.com/fogfish/opts"
)

// Option configures a Client.
type Option = opts.Option[Client]

var (
	// Model sets the model name sent with every request.
	Model = opts.ForName[Client, string]("model")

	// Temperature sets the sampling temperature sent with every request.
	Temperature = opts.ForName[Client, float64]("temperature")

	// Instructions sets the text of the system message that heads every request.
	Instructions = opts.ForName[Client, string]("instructions")

	// TokenBudget caps the token count of the messages in a request.
	TokenBudget = opts.ForName[Client, int]("budget")

	// WithTokenizer sets the counter that measures requests against the token
	// budget. By default the model's tiktoken encoding is loaded on first use.
	WithTokenizer = opts.ForName[Client, tokenizer.Counter]("counter")

	// WithLogger sets the client logger, slog.Default() when unset.
	WithLogger = opts.ForName[Client, *slog.Logger]("logger")
)

// WithHook registers hooks on the client. Calling it more than once adds to
// the hooks already registered.
func WithHook(hook Hook, extra ...Hook) Option {
	return opts.Type[Client](func(c *Client) error {
		c.hooks = append(c.hooks, hook)
		c.hooks = append(c.hooks, extra...)
		return nil
	})
}
