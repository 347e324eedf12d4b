package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/casualjim/chatter"
	"github.com/casualjim/chatter/provider"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
)

type repl struct {
	client *chatter.Client
	in     io.Reader
	out    io.Writer
	stream bool
	render func(string) (string, error)
}

func newREPL(client *chatter.Client, in io.Reader, out io.Writer) *repl {
	return &repl{client: client, in: in, out: out}
}

// Run reads prompts line by line until EOF, "exit" or ctx ends. Waiting at
// the prompt does not delay cancellation.
//
// Lines starting with a slash are commands: /clear forgets the conversation
// and /history prints it.
func (r *repl) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines, errc := scanLines(r.in, done)

	for {
		fmt.Fprintf(r.out, "%s: ", color.CyanString("User"))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, "Exiting...")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out, "Exiting...")
				return <-errc
			}
			line = l
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"):
			return nil
		case input == "/clear":
			r.client.DeleteHistoryList()
			fmt.Fprintln(r.out, color.YellowString("history cleared"))
			continue
		case input == "/history":
			r.printHistory()
			continue
		}

		var err error
		if r.stream {
			err = r.streamReply(ctx, input)
		} else {
			err = r.reply(ctx, input)
		}
		if errors.Is(err, provider.ErrCancelled) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "%s: %v\n", color.RedString("Error"), err)
		}
		fmt.Fprintln(r.out)
	}
}

// scanLines feeds the lines of in to the returned channel until EOF or until
// done is closed. The scan error, if any, is sent on errc before lines closes.
// A read blocked on in outlives done.
func scanLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (r *repl) reply(ctx context.Context, input string) error {
	result, err := r.client.SendMessage(ctx, input)
	if err != nil {
		return err
	}

	fmt.Fprint(r.out, color.MagentaString("Assistant")+": ")
	out := result.Text
	if r.render != nil {
		if rendered, err := r.render(result.Text); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.out, out)
	return nil
}

func (r *repl) streamReply(ctx context.Context, input string) error {
	fragments, err := r.client.SendMessageStream(ctx, input)
	if err != nil {
		return err
	}

	fmt.Fprint(r.out, color.MagentaString("Assistant")+": ")
	for fragment, err := range fragments {
		if err != nil {
			fmt.Fprintln(r.out)
			return err
		}
		fmt.Fprint(r.out, fragment)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) printHistory() {
	for _, msg := range r.client.HistoryList() {
		fmt.Fprintf(r.out, "%s: %s\n", color.GreenString(msg.Role.String()), msg.Content)
	}
}

var glam *glamour.TermRenderer

func renderMarkdown(text string) (string, error) {
	if glam == nil {
		var err error
		glam, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
		)
		if err != nil {
			return "", err
		}
	}
	return glam.Render(text)
}

func loadCheckpoint(path string) (chatter.Checkpoint, bool, error) {
	var cp chatter.Checkpoint
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("read conversation: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, false, fmt.Errorf("decode conversation %s: %w", path, err)
	}
	return cp, true, nil
}

func saveCheckpoint(path string, cp chatter.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
