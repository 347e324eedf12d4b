// Package provider holds the protocol side of a chat completion exchange:
// building a bounded request, decoding blocking and streaming responses, and
// the error kinds a caller can expect.
//
// Key concepts:
//   - Request: the wire body {model, temperature, messages, stream}
//   - BuildRequest: composes system + history + prompt and evicts the oldest
//     history entries until the token budget is met
//   - Transport: the network contract, implemented by provider/openai
//   - StreamDecoder / DecodeStream: turn "data: {...}" lines into ContentDelta
//     events followed by a single End
//   - DecodeResponse / DecodeErrorEnvelope: blocking success and error bodies
//
// Error kinds:
//   - ErrInvalidResponse: the transport did not produce an HTTP response
//   - *BadResponseError (ErrBadResponse): non-2xx status with its detail
//   - ErrDecode: malformed success body
//   - ErrPromptTooLarge: the new prompt alone exceeds the budget
//   - ErrCancelled: the caller's context ended mid-flight
//
// Example usage:
//
//	req, err := provider.BuildRequest(history, provider.BuildParams{
//	    Prompt:       "how are you",
//	    Instructions: "You are a helpful assistant",
//	    Model:        "gpt-4o-mini",
//	    Stream:       true,
//	    Budget:       provider.DefaultTokenBudget,
//	}, tokenizer.Estimate)
//	if err != nil {
//	    return err
//	}
//
//	body, err := transport.Stream(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//
//	for event, err := range provider.DecodeStream(ctx, body) {
//	    if err != nil {
//	        return err
//	    }
//	    switch e := event.(type) {
//	    case provider.ContentDelta:
//	        fmt.Print(e.Text)
//	    case provider.End:
//	        fmt.Println()
//	    }
//	}
package provider
