/*
Package chatter is a conversational completion client.

A Client keeps the history of one conversation and sends every new prompt
together with as much of that history as fits in a token budget. Responses
come back either whole or as a stream of text fragments, and each completed
exchange is appended to the history.

# Basic Usage

	transport, err := openai.New(openai.DefaultBaseURL, os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return err
	}

	client, err := chatter.New(transport,
		chatter.Model("gpt-4o-mini"),
		chatter.Instructions("You are a helpful assistant"),
		chatter.TokenBudget(4096),
	)
	if err != nil {
		return err
	}

	result, err := client.SendMessage(ctx, "hi")
	if err != nil {
		return err
	}
	fmt.Println(result.Text)

Streaming yields fragments as they arrive:

	fragments, err := client.SendMessageStream(ctx, "how are you")
	if err != nil {
		return err
	}
	for fragment, err := range fragments {
		if err != nil {
			return err
		}
		fmt.Print(fragment)
	}

# Token Budget

Each request starts with a system message carrying the instructions,
followed by the history oldest first, and ends with the new prompt. When the
tokens over all message contents exceed the budget, the oldest history
messages are left out until the request fits. The instructions and the
prompt are always sent; when they alone exceed the budget the call fails
with provider.ErrPromptTooLarge.

# History

The history only changes when an exchange completes. A failed call, an
abandoned stream or a cancelled context leave it untouched.
DeleteHistoryList, ReplaceHistoryList and HistoryList give direct access,
Checkpoint and Restore move a conversation in and out of storage.

# Errors

Errors are matched with errors.Is against the sentinels of the provider
package: ErrBadResponse for non-2xx statuses (see provider.BadResponseError
for the status and detail), ErrDecode, ErrPromptTooLarge, ErrCancelled and
ErrInvalidResponse.
*/
package chatter
