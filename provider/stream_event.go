package provider

import "github.com/tidwall/sjson"

var (
	deltaJSON = []byte(`{"type":"delta"}`)
	endJSON   = []byte(`{"type":"end"}`)
)

// StreamEvent is produced while a completion stream is consumed.
// It is either a ContentDelta or the terminal End. Both marshal to a JSON
// object tagged by a "type" of "delta" or "end".
type StreamEvent interface {
	streamEvent()
}

// ContentDelta is an incremental fragment of the assistant's response.
type ContentDelta struct {
	Text string `json:"text"`
}

func (ContentDelta) streamEvent() {}

// End marks the exhaustion of the stream.
type End struct {
	// FinishReason is the last finish_reason the server reported, if any.
	FinishReason string `json:"finish_reason,omitempty"`
}

func (End) streamEvent() {}

// MarshalJSON implements custom JSON marshaling for ContentDelta
func (d ContentDelta) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(deltaJSON, "text", d.Text)
}

// MarshalJSON implements custom JSON marshaling for End
func (e End) MarshalJSON() ([]byte, error) {
	if e.FinishReason == "" {
		return endJSON, nil
	}
	return sjson.SetBytes(endJSON, "finish_reason", e.FinishReason)
}
