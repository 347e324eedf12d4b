// Package tokenizer counts model tokens so requests can be kept within a
// token budget.
//
// Counter is the only contract the rest of the module depends on. Tiktoken
// adapts github.com/pkoukk/tiktoken-go encodings, Estimate is a cheap
// character based approximation and Words counts whitespace separated words,
// which makes budgets easy to reason about in tests.
//
// Tiktoken encodings come from the dictionaries embedded by
// github.com/pkoukk/tiktoken-go-loader, so loading one never blocks on the
// network. Lazy defers loading until the first count and degrades to
// DefaultEncoding, then Estimate, when the model has no encoding.
package tokenizer
