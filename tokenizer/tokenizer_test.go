package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterFunc(t *testing.T) {
	var calls int
	c := CounterFunc(func(text string) int {
		calls++
		return len(text)
	})
	assert.Equal(t, 5, c.Count("hello"))
	assert.Equal(t, 1, calls)
}

func TestWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hi", 1},
		{"how are you", 3},
		{"  spaced\tout\nwords ", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Words.Count(tt.text), "text %q", tt.text)
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"four chars", "abcd", 1},
		{"five chars", "abcde", 2},
		{"short words", "a b c d e f", 6},
		{"multibyte runes", "héllo wörld", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate.Count(tt.text))
		})
	}
}

func TestLazy_UnknownModelFallsBack(t *testing.T) {
	c := Lazy("definitely-not-a-model", nil)
	// Either the default encoding loads or the estimate is used; both count
	// a non-empty text as at least one token and the empty text as zero.
	assert.Positive(t, c.Count("hello world"))
	assert.Zero(t, c.Count(""))
}

func TestEncoding_Cached(t *testing.T) {
	first, err := Encoding(DefaultEncoding)
	require.NoError(t, err)
	second, err := Encoding(DefaultEncoding)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, DefaultEncoding, first.Name())
	assert.Positive(t, first.Count("hello world"))
}

func TestEncoding_LoadsOffline(t *testing.T) {
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())

	enc, err := Encoding(DefaultEncoding)
	require.NoError(t, err)
	assert.Equal(t, 2, enc.Count("hello world"))

	model, err := ForModel("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", model.Name())
	assert.Equal(t, enc.Count("how are you today"), model.Count("how are you today"))
}

func TestEncoding_Unknown(t *testing.T) {
	_, err := Encoding("no_such_encoding")
	assert.Error(t, err)

	_, ok := encodings.Get("encoding:no_such_encoding")
	assert.False(t, ok, "failures are not cached")
}
