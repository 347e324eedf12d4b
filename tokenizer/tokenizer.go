package tokenizer

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/chatter/pkg/slogx"
	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encodings are read from the dictionaries embedded by tiktoken-go-loader,
// so counting never touches the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts model tokens in arbitrary text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

// Count calls f(text).
func (f CounterFunc) Count(text string) int {
	return f(text)
}

// Estimate approximates the token count as one token per four characters,
// rounded up. It never returns less than the number of whitespace separated
// words, which keeps short texts of short words from being undercounted.
var Estimate = CounterFunc(func(text string) int {
	if text == "" {
		return 0
	}
	n := (utf8.RuneCountInString(text) + 3) / 4
	return max(n, len(strings.Fields(text)))
})

// Words counts whitespace separated words.
var Words = CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

// DefaultEncoding is used when a model has no registered encoding.
const DefaultEncoding = "cl100k_base"

var encodings = haxmap.New[string, *Tiktoken]()

// Tiktoken counts tokens with a BPE encoding from tiktoken.
type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// Name returns the encoding or model name this counter was resolved for.
func (t *Tiktoken) Name() string {
	return t.name
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encoding returns the counter for a named encoding, like cl100k_base.
// Loaded encodings are cached for the lifetime of the process.
func Encoding(name string) (*Tiktoken, error) {
	return load("encoding:"+name, name, tiktoken.GetEncoding)
}

// ForModel returns the counter for the encoding a model uses.
func ForModel(model string) (*Tiktoken, error) {
	return load("model:"+model, model, tiktoken.EncodingForModel)
}

func load(key, name string, get func(string) (*tiktoken.Tiktoken, error)) (*Tiktoken, error) {
	if t, ok := encodings.Get(key); ok {
		return t, nil
	}
	enc, err := get(name)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load %s: %w", name, err)
	}
	t := &Tiktoken{name: name, enc: enc}
	encodings.Set(key, t)
	return t, nil
}

// Lazy returns a counter that resolves the model encoding on first use.
// When the model is unknown it tries DefaultEncoding, and when no encoding can
// be loaded at all it falls back to Estimate.
func Lazy(model string, logger *slog.Logger) Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &lazyCounter{model: model, logger: logger}
}

type lazyCounter struct {
	model  string
	logger *slog.Logger

	once    sync.Once
	counter Counter
}

func (l *lazyCounter) resolve() {
	t, err := ForModel(l.model)
	if err == nil {
		l.counter = t
		return
	}
	l.logger.Debug("no tokenizer for model, using default encoding", slog.String("model", l.model), slogx.Error(err))

	t, err = Encoding(DefaultEncoding)
	if err == nil {
		l.counter = t
		return
	}
	l.logger.Warn("tokenizer unavailable, estimating token counts", slog.String("model", l.model), slogx.Error(err))
	l.counter = Estimate
}

func (l *lazyCounter) Count(text string) int {
	l.once.Do(l.resolve)
	return l.counter.Count(text)
}
