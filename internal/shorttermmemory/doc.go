// Package shorttermmemory keeps the rolling conversation a chat client sends
// back to the model on every turn.
//
// Design decisions:
//   - Exchanges only: the history holds user and assistant messages; the
//     system message is synthesized per request and never stored
//   - Copy on read: Messages returns a clone so a request can be built while
//     the owner keeps mutating the history
//   - No validation: Replace accepts any message list, keeping alternation is
//     the caller's job
//   - Usage tracking: provider reported token usage accumulates alongside the
//     messages
//   - Checkpoints: a JSON serializable snapshot lets a persistence layer save
//     and restore a conversation
//
// Example usage:
//
//	h := shorttermmemory.New()
//	h.Append("hi", "hello")
//	cp := h.Checkpoint()
//	data, _ := json.Marshal(cp)
//
//	var restored shorttermmemory.Checkpoint
//	_ = json.Unmarshal(data, &restored)
//	other := shorttermmemory.New()
//	other.Restore(restored)
//
// History is not synchronized. It is owned by exactly one chat client which
// guards every access with its own lock.
package shorttermmemory
