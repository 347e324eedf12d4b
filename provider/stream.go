package provider

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/tidwall/gjson"
)

// DataPrefix starts every content-bearing line of the event stream.
const DataPrefix = "data:"

// MaxLineSize bounds a single event line. Longer lines are skipped whole.
const MaxLineSize = 1 << 20

// StreamState is the state of a StreamDecoder.
type StreamState int

const (
	// StreamReading means more events may follow.
	StreamReading StreamState = iota
	// StreamDone means End was returned and the source is exhausted.
	StreamDone
	// StreamFailed means a read error or cancellation stopped the decoder.
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamReading:
		return "reading"
	case StreamDone:
		return "done"
	case StreamFailed:
		return "failed"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// StreamDecoder turns a line oriented event stream into StreamEvents.
//
// Lines without the data prefix and data lines that are not a JSON delta (the
// [DONE] sentinel among them) are skipped, and so are lines longer than
// MaxLineSize. Exhausting the source yields a single End. A read error or a
// cancelled context moves the decoder to StreamFailed and is returned from
// every later call.
type StreamDecoder struct {
	reader       *bufio.Reader
	line         []byte
	skipped      int
	state        StreamState
	err          error
	finishReason string
	text         strings.Builder
}

// NewStreamDecoder creates a decoder reading from r.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return &StreamDecoder{reader: bufio.NewReaderSize(r, 64*1024)}
}

// State returns the current decoder state.
func (d *StreamDecoder) State() StreamState {
	return d.state
}

// Text returns the concatenation of all content deltas decoded so far.
func (d *StreamDecoder) Text() string {
	return d.text.String()
}

// Skipped returns how many lines were dropped for exceeding MaxLineSize.
func (d *StreamDecoder) Skipped() int {
	return d.skipped
}

// Next returns the next event. After End it returns io.EOF.
func (d *StreamDecoder) Next(ctx context.Context) (StreamEvent, error) {
	for {
		switch d.state {
		case StreamDone:
			return nil, io.EOF
		case StreamFailed:
			return nil, d.err
		}

		if ctx.Err() != nil {
			return nil, d.fail(Cancelled(ctx))
		}

		line, err := d.readLine()
		if errors.Is(err, io.EOF) {
			d.state = StreamDone
			return End{FinishReason: d.finishReason}, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, d.fail(Cancelled(ctx))
			}
			return nil, d.fail(fmt.Errorf("read stream: %w", err))
		}

		if text, ok := d.decodeLine(line); ok {
			d.text.WriteString(text)
			return ContentDelta{Text: text}, nil
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineSize is consumed, counted and replaced by an empty line. io.EOF is
// only returned once no bytes are left.
func (d *StreamDecoder) readLine() ([]byte, error) {
	d.line = d.line[:0]
	oversized := false
	for {
		chunk, err := d.reader.ReadSlice('\n')
		if !oversized && len(d.line)+len(chunk) > MaxLineSize+2 {
			oversized = true
			d.line = d.line[:0]
		}
		if !oversized {
			d.line = append(d.line, chunk...)
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil, errors.Is(err, io.EOF) && (oversized || len(d.line) > 0):
			line := bytes.TrimRight(d.line, "\r\n")
			if oversized || len(line) > MaxLineSize {
				d.skipped++
				return nil, nil
			}
			return line, nil
		default:
			return nil, err
		}
	}
}

func (d *StreamDecoder) fail(err error) error {
	d.state = StreamFailed
	d.err = err
	return err
}

func (d *StreamDecoder) decodeLine(line []byte) (string, bool) {
	payload, ok := strings.CutPrefix(string(line), DataPrefix)
	if !ok {
		return "", false
	}
	payload = strings.TrimPrefix(payload, " ")
	if !gjson.Valid(payload) {
		return "", false
	}

	choice := gjson.Get(payload, "choices.0")
	if reason := choice.Get("finish_reason"); reason.Type == gjson.String && reason.Str != "" {
		d.finishReason = reason.Str
	}
	content := choice.Get("delta.content")
	if content.Type != gjson.String || content.Str == "" {
		return "", false
	}
	return content.Str, true
}

// DecodeStream lazily decodes r, yielding each event as soon as it is read.
//
// The sequence is single-pass and paced by the consumer: nothing is read
// until the next element is requested and breaking out of the loop stops
// reading. It ends after End, or after yielding the error that stopped it.
func DecodeStream(ctx context.Context, r io.Reader) iter.Seq2[StreamEvent, error] {
	d := NewStreamDecoder(r)
	return func(yield func(StreamEvent, error) bool) {
		for {
			ev, err := d.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
