package shorttermmemory

import (
	"fmt"
	"slices"
	"time"

	"github.com/casualjim/chatter/messages"
	"github.com/casualjim/chatter/provider"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// New creates an empty History with a fresh identifier.
func New() *History {
	return &History{
		id:       uuid.Must(uuid.NewV7()),
		messages: make([]messages.Message, 0),
	}
}

// History is the ordered record of completed exchanges, oldest first.
//
// It is not safe for concurrent use; its owner serializes access.
type History struct {
	id       uuid.UUID          // Unique identifier for this history
	messages []messages.Message // Completed exchanges in order
	usage    provider.Usage     // Provider reported usage across exchanges
}

// ID returns the unique identifier of this history.
func (h *History) ID() uuid.UUID {
	return h.id
}

// Len returns the number of messages currently held.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of all messages, safe to use for request building
// while the history keeps changing.
func (h *History) Messages() []messages.Message {
	return slices.Clone(h.messages)
}

// Append records one completed exchange: the user prompt followed by the
// assistant response.
func (h *History) Append(user, assistant string) {
	h.messages = append(h.messages, messages.User(user), messages.Assistant(assistant))
}

// Replace overwrites the whole history with msgs.
//
// The shape of msgs is not validated. Callers are expected to pass user and
// assistant messages in alternation, starting with a user message; any other
// shape is kept as given and sent on the next request.
func (h *History) Replace(msgs []messages.Message) {
	h.messages = slices.Clone(msgs)
	if h.messages == nil {
		h.messages = make([]messages.Message, 0)
	}
}

// Clear removes every message. Accumulated usage is kept.
func (h *History) Clear() {
	h.messages = make([]messages.Message, 0)
}

// Usage returns the usage accumulated over the recorded exchanges.
func (h *History) Usage() provider.Usage {
	return h.usage
}

// AddUsage adds provider reported usage to the running total.
func (h *History) AddUsage(u *provider.Usage) {
	h.usage.AddUsage(u)
}

// Checkpoint creates a snapshot of the current state for persistence.
// Later changes to the history do not affect the checkpoint.
func (h *History) Checkpoint() Checkpoint {
	return Checkpoint{
		id:        h.id,
		messages:  slices.Clone(h.messages),
		usage:     h.usage,
		createdAt: strfmt.DateTime(time.Now().UTC()),
	}
}

// Restore replaces the state of the history with a checkpoint.
// The history takes over the checkpoint's identifier unless it is nil.
func (h *History) Restore(c Checkpoint) {
	h.Replace(c.messages)
	h.usage = c.usage
	if c.id != uuid.Nil {
		h.id = c.id
	}
}

// Checkpoint is an immutable snapshot of a History.
type Checkpoint struct {
	id        uuid.UUID
	messages  []messages.Message
	usage     provider.Usage
	createdAt strfmt.DateTime
}

// ID returns the identifier of the history the checkpoint was taken from.
func (c *Checkpoint) ID() uuid.UUID {
	return c.id
}

// Messages returns a copy of the messages in the checkpoint.
func (c *Checkpoint) Messages() []messages.Message {
	return slices.Clone(c.messages)
}

// Usage returns the usage at checkpoint time.
func (c *Checkpoint) Usage() provider.Usage {
	return c.usage
}

// CreatedAt returns when the checkpoint was taken.
func (c *Checkpoint) CreatedAt() strfmt.DateTime {
	return c.createdAt
}

type checkpointJSON struct {
	ID        string             `json:"id"`
	Messages  []messages.Message `json:"messages"`
	Usage     provider.Usage     `json:"usage"`
	CreatedAt strfmt.DateTime    `json:"created_at"`
}

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	msgs := c.messages
	if msgs == nil {
		msgs = []messages.Message{}
	}
	return json.Marshal(checkpointJSON{
		ID:        c.id.String(),
		Messages:  msgs,
		Usage:     c.usage,
		CreatedAt: c.createdAt,
	})
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var tmp checkpointJSON
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	id, err := uuid.Parse(tmp.ID)
	if err != nil {
		return fmt.Errorf("invalid checkpoint id: %w", err)
	}
	c.id = id
	c.messages = tmp.Messages
	c.usage = tmp.Usage
	c.createdAt = tmp.CreatedAt
	return nil
}
