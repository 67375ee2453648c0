package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/unread-assistant/inbox/fileutils"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/provider"
)

// FallbackReply is what AnswerQuery returns when the completion call fails.
const FallbackReply = "I'm here to help, but it seems there was an issue processing that request. Could you try again?"

// DefaultMaxOutputTokens caps the length of each reply.
const DefaultMaxOutputTokens = 100

// Exchange is one dispatched query and its outcome.
type Exchange struct {
	At          time.Time
	Query       string
	Reply       string
	Contact     string
	Provider    string
	Model       string
	Usage       provider.Usage
	FailureKind provider.FailureKind
	Err         string
}

// Recorder receives every dispatched exchange.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// Answer is a successful reply with the contact it was attributed to, if any.
type Answer struct {
	Text     string
	Contact  string
	Provider string
	Model    string
	Usage    provider.Usage
}

type SessionOptions struct {
	Model           string
	MaxOutputTokens int
	Logger          *slog.Logger
	Recorder        Recorder
	Now             func() time.Time
}

// Session owns the unread snapshot and the last referenced contact for one interactive run.
// It is not safe for concurrent use.
type Session struct {
	completer       provider.Completer
	model           string
	maxOutputTokens int
	logger          *slog.Logger
	recorder        Recorder
	now             func() time.Time

	snapshot    *Snapshot
	lastContact string
	hasContact  bool
}

func NewSession(c provider.Completer, opts SessionOptions) (*Session, error) {
	if c == nil {
		return nil, errors.New("NewSession: completer is nil")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("NewSession: model is empty")
	}
	if opts.MaxOutputTokens < 0 {
		return nil, errors.New("NewSession: max output tokens must be >= 0")
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		completer:       c,
		model:           opts.Model,
		maxOutputTokens: opts.MaxOutputTokens,
		logger:          opts.Logger,
		recorder:        opts.Recorder,
		now:             opts.Now,
		snapshot:        NewSnapshot(),
	}, nil
}

// Load replaces the snapshot with the records at path. The snapshot is replaced even on error,
// with whatever LoadUnread returned (empty or partial).
func (s *Session) Load(path string) error {
	snap, err := LoadUnread(path)
	s.Replace(snap)
	return err
}

func (s *Session) Replace(snap *Snapshot) {
	if snap == nil {
		snap = NewSnapshot()
	}
	s.snapshot = snap
}

func (s *Session) Snapshot() *Snapshot { return s.snapshot }

// LastContact is the contact most recently named in a reply. It is a substring guess.
func (s *Session) LastContact() (string, bool) {
	return s.lastContact, s.hasContact
}

// Ask sends query with the current snapshot to the completer.
func (s *Session) Ask(ctx context.Context, query string) (Answer, error) {
	ex := Exchange{At: s.now(), Query: query, Model: s.model}

	comp, err := s.completer.Complete(ctx, provider.Request{
		Model:           s.model,
		Prompt:          BuildPrompt(query, s.snapshot),
		MaxOutputTokens: s.maxOutputTokens,
	})
	if err == nil && strings.TrimSpace(comp.Text) == "" {
		err = &provider.CallError{Provider: comp.Provider, Kind: provider.KindEmptyResponse, Err: provider.ErrEmptyResponse}
	}
	if err != nil {
		ex.FailureKind = provider.KindOf(err)
		ex.Err = err.Error()
		s.record(ctx, ex)
		return Answer{}, fmt.Errorf("ask: %w", err)
	}

	ans := Answer{
		Text:     strings.TrimSpace(comp.Text),
		Provider: comp.Provider,
		Model:    comp.Model,
		Usage:    comp.Usage,
	}
	if ans.Model == "" {
		ans.Model = s.model
	}
	if name, ok := MatchContact(ans.Text, s.snapshot); ok {
		ans.Contact = name
		s.lastContact, s.hasContact = name, true
	}

	ex.Reply = ans.Text
	ex.Contact = ans.Contact
	ex.Provider = ans.Provider
	ex.Model = ans.Model
	ex.Usage = ans.Usage
	s.record(ctx, ex)
	return ans, nil
}

// AnswerQuery is Ask with failures absorbed: errors are logged and FallbackReply is returned.
func (s *Session) AnswerQuery(ctx context.Context, query string) string {
	ans, err := s.Ask(ctx, query)
	if err != nil {
		s.logger.Error("completion failed",
			"kind", provider.KindOf(err),
			"query", fileutils.Truncate(fileutils.SanitizeNewlines(query), 80),
			"err", err,
		)
		return FallbackReply
	}
	s.logger.Debug("completion ok",
		"model", ans.Model,
		"contact", ans.Contact,
		"input_tokens", ans.Usage.InputTokens,
		"output_tokens", ans.Usage.OutputTokens,
	)
	return ans.Text
}

func (s *Session) record(ctx context.Context, ex Exchange) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, ex); err != nil {
		s.logger.Warn("journal record failed", "err", err)
	}
}
