package inbox

import (
	"strings"
	"testing"
)

func testSnapshot(msgs ...UnreadMessage) *Snapshot {
	s := NewSnapshot()
	for _, m := range msgs {
		s.Put(m)
	}
	return s
}

func TestSummarize_OneLinePerContact(t *testing.T) {
	t.Parallel()

	s := testSnapshot(
		UnreadMessage{ContactName: "Alice", ReceivedTime: "10:00", UnreadCount: 2, MessageText: "Hello there"},
		UnreadMessage{ContactName: "Bob", ReceivedTime: "10:05", UnreadCount: 1, MessageText: "Lunch?"},
	)
	got := Summarize(s)
	want := "Alice sent 'Hello there' at 10:00.\nBob sent 'Lunch?' at 10:05."
	if got != want {
		t.Fatalf("Summarize=%q, want %q", got, want)
	}
	if Summarize(NewSnapshot()) != "" {
		t.Fatalf("empty snapshot should summarize to empty string")
	}
}

func TestBuildPrompt_ContainsEveryEntryAndQuery(t *testing.T) {
	t.Parallel()

	s := testSnapshot(
		UnreadMessage{ContactName: "Alice", ReceivedTime: "10:00", MessageText: "Hello there"},
		UnreadMessage{ContactName: "Bob", ReceivedTime: "Mon 08:15", MessageText: "Note: bring the keys"},
		UnreadMessage{ContactName: "Carol", ReceivedTime: "yesterday", MessageText: "ok"},
	)
	query := "what did Bob say?"
	p := BuildPrompt(query, s)

	for _, m := range s.Messages() {
		line := m.ContactName + " sent '" + m.MessageText + "' at " + m.ReceivedTime + "."
		if strings.Count(p, line) != 1 {
			t.Fatalf("prompt should contain %q exactly once:\n%s", line, p)
		}
	}
	if !strings.HasSuffix(p, "User query: '"+query+"'") {
		t.Fatalf("prompt should end with the quoted query:\n%s", p)
	}
	if !strings.Contains(p, "clarification") {
		t.Fatalf("prompt should ask for clarification when ambiguous")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	s := testSnapshot(
		UnreadMessage{ContactName: "Alice", ReceivedTime: "10:00", MessageText: "a"},
		UnreadMessage{ContactName: "Bob", ReceivedTime: "10:01", MessageText: "b"},
	)
	if BuildPrompt("q", s) != BuildPrompt("q", s) {
		t.Fatalf("BuildPrompt must be deterministic")
	}
	if !strings.Contains(BuildPrompt("q", nil), "User query: 'q'") {
		t.Fatalf("nil snapshot should still yield a prompt")
	}
}

func TestMatchContact_FirstInSnapshotOrder(t *testing.T) {
	t.Parallel()

	s := testSnapshot(
		UnreadMessage{ContactName: "Al"},
		UnreadMessage{ContactName: "Alice"},
		UnreadMessage{ContactName: "Bob"},
	)

	name, ok := MatchContact("You should reply to Alice first.", s)
	if !ok || name != "Al" {
		t.Fatalf("MatchContact=%q,%v; want substring match on the earlier contact %q", name, ok, "Al")
	}
	name, ok = MatchContact("Bob asked about lunch.", s)
	if !ok || name != "Bob" {
		t.Fatalf("MatchContact=%q,%v; want Bob", name, ok)
	}
	if _, ok := MatchContact("No one in particular.", s); ok {
		t.Fatalf("expected no match")
	}
}
