// Package messages defines the conversation entries exchanged with a chat
// completion service.
//
// A Message is a plain value made of a Role and its text Content. Roles are
// restricted to system, user and assistant; anything else fails to encode or
// decode so a malformed transcript never reaches the wire.
//
// Example usage:
//
//	history := []messages.Message{
//	    messages.User("hi"),
//	    messages.Assistant("hello"),
//	}
//	data, err := json.Marshal(history)
//
// The system message is not meant to be stored in a conversation history; it
// is synthesized for every request from the configured instructions.
package messages
