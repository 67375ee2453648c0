package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/unread-assistant/inbox"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/journal"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/provider"
)

const (
	readyBanner = "AI Agent ready. Type queries about unread messages or 'exit' to quit."
	inputPrompt = "Your query: "
	replyPrefix = "AI Response:"
	exitNotice  = "Exiting AI agent."
	exitCommand = "exit"
)

func main() {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if cfg.APIKey == "" {
		fmt.Fprintf(os.Stderr, "missing %s (or pass -api-key)\n", provider.APIKeyEnv(cfg.Provider))
		os.Exit(2)
	}

	level, _ := parseLogLevel(cfg.LogLevel)
	logger := newLogger(os.Stderr, level, cfg.LogFormat)

	completer, err := provider.New(provider.Settings{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx := context.Background()

	opts := inbox.SessionOptions{
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Logger:          logger,
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			logger.Warn("journal disabled", "path", cfg.JournalPath, "err", err)
		} else {
			defer j.Close()
			opts.Recorder = j
			logger.Debug("journal open", "path", cfg.JournalPath, "session_id", j.SessionID())
		}
	}

	session, err := inbox.NewSession(completer, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	loadRecords(session, cfg.RecordsPath, logger)

	if err := runLoop(ctx, os.Stdin, os.Stdout, session); err != nil {
		logger.Error("read input", "err", err)
	}
}

// loadRecords loads the snapshot once for the whole run. Failures are reported, never fatal.
func loadRecords(s *inbox.Session, path string, logger *slog.Logger) {
	err := s.Load(path)
	snap := s.Snapshot()
	switch {
	case err == nil:
		logger.Info("loaded unread messages", "path", path, "contacts", snap.Len(), "unread", snap.TotalUnread())
	case errors.Is(err, inbox.ErrNoData):
		logger.Warn("no unread message file found", "path", path)
	default:
		logger.Error("failed to load unread messages", "path", path, "contacts_kept", snap.Len(), "err", err)
	}
}

type answerer interface {
	AnswerQuery(ctx context.Context, query string) string
}

// runLoop reads one query per line until "exit" or end of input.
func runLoop(ctx context.Context, in io.Reader, out io.Writer, a answerer) error {
	fmt.Fprintln(out, readyBanner)

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, inputPrompt)
		if !s.Scan() {
			fmt.Fprintln(out)
			break
		}
		query := strings.TrimSpace(s.Text())
		if strings.EqualFold(query, exitCommand) {
			break
		}
		if query == "" {
			continue
		}
		fmt.Fprintln(out, replyPrefix, a.AnswerQuery(ctx, query))
	}

	fmt.Fprintln(out, exitNotice)
	return s.Err()
}
