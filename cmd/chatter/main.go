// chatter is an interactive terminal chat against an OpenAI compatible
// chat completions endpoint.
//
// The API key is read from OPENAI_API_KEY, a .env file in the working
// directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/casualjim/chatter"
	"github.com/casualjim/chatter/pkg/slogx"
	"github.com/casualjim/chatter/provider"
	"github.com/casualjim/chatter/provider/openai"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type config struct {
	baseURL      string
	model        string
	temperature  float64
	instructions string
	budget       int
	stream       bool
	historyFile  string
	logLevel     string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	level, err := parseLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	transport, err := openai.New(cfg.baseURL, apiKey)
	if err != nil {
		return err
	}

	client, err := chatter.New(transport,
		chatter.Model(cfg.model),
		chatter.Temperature(cfg.temperature),
		chatter.Instructions(cfg.instructions),
		chatter.TokenBudget(cfg.budget),
		chatter.WithHook(chatter.LoggingHook(slog.Default())),
	)
	if err != nil {
		return err
	}

	if cfg.historyFile != "" {
		cp, found, err := loadCheckpoint(cfg.historyFile)
		if err != nil {
			return err
		}
		if found {
			client.Restore(cp)
			slog.Info("restored conversation", slog.String("file", cfg.historyFile), slog.Int("messages", len(cp.Messages())))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// A second interrupt while the conversation is being saved kills the process.
	go func() {
		<-ctx.Done()
		stop()
	}()

	slog.Debug("starting chat",
		slog.String("endpoint", transport.Endpoint()),
		slog.String("model", cfg.model),
		slog.Int("budget", cfg.budget),
		slog.Bool("stream", cfg.stream),
	)

	r := newREPL(client, os.Stdin, os.Stdout)
	r.stream = cfg.stream
	r.render = renderMarkdown
	runErr := r.Run(ctx)

	if cfg.historyFile != "" {
		if err := saveCheckpoint(cfg.historyFile, client.Checkpoint()); err != nil {
			slog.Error("failed to save conversation", slog.String("file", cfg.historyFile), slogx.Error(err))
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func parseFlags(args []string) (config, error) {
	cfg := config{}

	defaultModel := os.Getenv("OPENAI_DEFAULT_MODEL")
	if defaultModel == "" {
		defaultModel = openai.DefaultModel
	}

	flagSet := pflag.NewFlagSet("chatter", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.baseURL, "base-url", openai.DefaultBaseURL, "API base URL, chat/completions is posted below it")
	flagSet.StringVarP(&cfg.model, "model", "m", defaultModel, "model name")
	flagSet.Float64VarP(&cfg.temperature, "temperature", "t", 0.7, "sampling temperature")
	flagSet.StringVarP(&cfg.instructions, "instructions", "i", "You are a helpful assistant.", "system prompt sent with every request")
	flagSet.IntVar(&cfg.budget, "budget", provider.DefaultTokenBudget, "maximum tokens across the messages of a request")
	flagSet.BoolVar(&cfg.stream, "stream", true, "stream responses as they are generated")
	flagSet.StringVar(&cfg.historyFile, "history", "", "load the conversation from this file and save it on exit")
	flagSet.StringVar(&cfg.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		return config{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return config{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
