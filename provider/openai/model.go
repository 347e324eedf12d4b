package openai

import oai "github.com/openai/openai-go"

const (
	// DefaultBaseURL is the root of the OpenAI REST API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel string = oai.ChatModelGPT4oMini
)
