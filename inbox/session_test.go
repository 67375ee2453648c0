package inbox

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/unread-assistant/inbox/provider"
)

type recordingRecorder struct {
	exchanges []Exchange
	err       error
}

func (r *recordingRecorder) Record(ctx context.Context, ex Exchange) error {
	r.exchanges = append(r.exchanges, ex)
	return r.err
}

func replyWith(text string, seen *provider.Request) provider.CompleterFunc {
	return func(ctx context.Context, req provider.Request) (provider.Completion, error) {
		if seen != nil {
			*seen = req
		}
		return provider.Completion{Text: text, Provider: provider.OpenAI, Usage: provider.Usage{InputTokens: 12, OutputTokens: 3}}, nil
	}
}

func newTestSession(t *testing.T, c provider.Completer, opts SessionOptions) *Session {
	t.Helper()
	if opts.Model == "" {
		opts.Model = "gpt-4-turbo"
	}
	s, err := NewSession(c, opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSession_Validates(t *testing.T) {
	t.Parallel()

	if _, err := NewSession(nil, SessionOptions{Model: "m"}); err == nil {
		t.Fatalf("expected error for nil completer")
	}
	if _, err := NewSession(replyWith("x", nil), SessionOptions{}); err == nil {
		t.Fatalf("expected error for empty model")
	}
	if _, err := NewSession(replyWith("x", nil), SessionOptions{Model: "m", MaxOutputTokens: -1}); err == nil {
		t.Fatalf("expected error for negative token cap")
	}
}

func TestSession_AskBuildsRequestAndAttributesContact(t *testing.T) {
	t.Parallel()

	var req provider.Request
	rec := &recordingRecorder{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSession(t, replyWith("  Alice said hello at 10:00.\n", &req), SessionOptions{
		Recorder: rec,
		Now:      func() time.Time { return now },
	})
	s.Replace(testSnapshot(
		UnreadMessage{ContactName: "Bob", ReceivedTime: "09:00", MessageText: "hey"},
		UnreadMessage{ContactName: "Alice", ReceivedTime: "10:00", MessageText: "hello"},
	))

	ans, err := s.Ask(context.Background(), "who said hello?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "Alice said hello at 10:00." {
		t.Fatalf("Text=%q, want trimmed reply", ans.Text)
	}
	if ans.Contact != "Alice" {
		t.Fatalf("Contact=%q", ans.Contact)
	}
	if got, ok := s.LastContact(); !ok || got != "Alice" {
		t.Fatalf("LastContact=%q,%v", got, ok)
	}

	if req.Model != "gpt-4-turbo" || req.MaxOutputTokens != DefaultMaxOutputTokens {
		t.Fatalf("req model=%q max=%d", req.Model, req.MaxOutputTokens)
	}
	if req.Prompt != BuildPrompt("who said hello?", s.Snapshot()) {
		t.Fatalf("request prompt should be BuildPrompt output")
	}

	if len(rec.exchanges) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(rec.exchanges))
	}
	ex := rec.exchanges[0]
	if ex.Contact != "Alice" || ex.Reply != ans.Text || !ex.At.Equal(now) || ex.FailureKind != "" || ex.Usage.InputTokens != 12 {
		t.Fatalf("exchange=%+v", ex)
	}
}

func TestSession_LastContactKeptWhenReplyNamesNobody(t *testing.T) {
	t.Parallel()

	replies := []string{"Bob wants lunch.", "Nothing else is pending."}
	i := 0
	c := provider.CompleterFunc(func(ctx context.Context, req provider.Request) (provider.Completion, error) {
		out := replies[i]
		i++
		return provider.Completion{Text: out}, nil
	})
	s := newTestSession(t, c, SessionOptions{})
	s.Replace(testSnapshot(UnreadMessage{ContactName: "Bob"}))

	if _, ok := s.LastContact(); ok {
		t.Fatalf("fresh session should have no last contact")
	}
	s.AnswerQuery(context.Background(), "q1")
	s.AnswerQuery(context.Background(), "q2")
	if got, ok := s.LastContact(); !ok || got != "Bob" {
		t.Fatalf("LastContact=%q,%v; want Bob", got, ok)
	}
}

func TestSession_AnswerQueryAbsorbsFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	rec := &recordingRecorder{}
	c := provider.CompleterFunc(func(ctx context.Context, req provider.Request) (provider.Completion, error) {
		return provider.Completion{}, &provider.CallError{Provider: provider.OpenAI, Kind: provider.KindRateLimit, Err: errors.New("429 Too Many Requests")}
	})
	s := newTestSession(t, c, SessionOptions{
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
		Recorder: rec,
	})

	if got := s.AnswerQuery(context.Background(), "anything new?"); got != FallbackReply {
		t.Fatalf("AnswerQuery=%q, want fallback", got)
	}
	if !strings.Contains(logs.String(), "kind=rate_limit") {
		t.Fatalf("expected failure kind in logs: %s", logs.String())
	}
	if len(rec.exchanges) != 1 || rec.exchanges[0].FailureKind != provider.KindRateLimit {
		t.Fatalf("exchanges=%+v", rec.exchanges)
	}

	_, err := s.Ask(context.Background(), "again")
	var ce *provider.CallError
	if !errors.As(err, &ce) || ce.Kind != provider.KindRateLimit {
		t.Fatalf("Ask err=%v, want *provider.CallError rate_limit", err)
	}
}

func TestSession_EmptyReplyIsFailure(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, replyWith("   ", nil), SessionOptions{})
	_, err := s.Ask(context.Background(), "q")
	if provider.KindOf(err) != provider.KindEmptyResponse {
		t.Fatalf("err=%v, want empty_response", err)
	}
	if got := s.AnswerQuery(context.Background(), "q"); got != FallbackReply {
		t.Fatalf("AnswerQuery=%q", got)
	}
}

func TestSession_RecorderErrorDoesNotFailAnswer(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{err: errors.New("disk full")}
	s := newTestSession(t, replyWith("fine", nil), SessionOptions{Recorder: rec})
	if got := s.AnswerQuery(context.Background(), "q"); got != "fine" {
		t.Fatalf("AnswerQuery=%q", got)
	}
}

func TestSession_LoadReplacesSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "whatsapp_recv.txt")
	if err := os.WriteFile(p, []byte(recordBlock("Alice", "10:00", 2, "Hello there")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := newTestSession(t, replyWith("x", nil), SessionOptions{})
	s.Replace(testSnapshot(UnreadMessage{ContactName: "Stale"}))
	if err := s.Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Snapshot().Contacts(); len(got) != 1 || got[0] != "Alice" {
		t.Fatalf("Contacts=%v, want only Alice", got)
	}

	err := s.Load(filepath.Join(dir, "missing.txt"))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err=%v, want ErrNoData", err)
	}
	if s.Snapshot().Len() != 0 {
		t.Fatalf("missing file should leave an empty snapshot, got %d entries", s.Snapshot().Len())
	}
}
