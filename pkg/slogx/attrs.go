package slogx

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"unicode/utf8"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Fingerprint identifies a secret without revealing it.
// It logs the first 8 hex characters of the SHA-256 of the value, or "unset"
// when the value is empty.
func Fingerprint(key string, secret string) slog.Attr {
	if secret == "" {
		return slog.String(key, "unset")
	}
	sum := sha256.Sum256([]byte(secret))
	return slog.String(key, hex.EncodeToString(sum[:4]))
}

// Truncated logs at most n bytes of value, marking the cut with an ellipsis.
// The cut never splits a UTF-8 sequence. A non-positive n logs value whole.
func Truncated(key string, value string, n int) slog.Attr {
	if n <= 0 || len(value) <= n {
		return slog.String(key, value)
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return slog.String(key, value[:cut]+"…")
}

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
)

// LoggerName returns an attribute for the logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
