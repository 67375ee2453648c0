package inbox

import (
	"fmt"
	"strings"
)

const assistantPromptHeader = `You are a WhatsApp AI assistant. The user has unread messages summarized here:
`

const assistantPromptInstructions = `Please interpret the following query and respond accordingly. If they ask about unread messages, provide the details. If they ask to respond, generate a direct reply. You may ask for clarification if needed, especially if multiple contacts are in memory.`

// Summarize renders one line per unread message in snapshot order.
func Summarize(s *Snapshot) string {
	msgs := s.Messages()
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s sent '%s' at %s.", m.ContactName, m.MessageText, m.ReceivedTime))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps the unread summary and the user's query into the assistant instructions.
func BuildPrompt(query string, s *Snapshot) string {
	var b strings.Builder
	b.WriteString(assistantPromptHeader)
	b.WriteString(Summarize(s))
	b.WriteString("\n\n")
	b.WriteString(assistantPromptInstructions)
	b.WriteString("\n\nUser query: '")
	b.WriteString(query)
	b.WriteString("'")
	return b.String()
}

// MatchContact returns the first contact, in snapshot order, whose name occurs verbatim in text.
// It is a plain substring test: "Al" matches a reply that only mentions "Alice".
func MatchContact(text string, s *Snapshot) (string, bool) {
	for _, name := range s.Contacts() {
		if strings.Contains(text, name) {
			return name, true
		}
	}
	return "", false
}
