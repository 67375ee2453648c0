package inbox

// UnreadMessage is the unread summary for a single contact, as recorded by the notification ingester.
type UnreadMessage struct {
	ContactName string `json:"contact_name" jsonschema:"required"`

	// ReceivedTime is free-form, exactly as recorded upstream. It is never parsed.
	ReceivedTime string `json:"received_time" jsonschema:"required"`
	UnreadCount  int    `json:"unread_count" jsonschema:"required"`
	MessageText  string `json:"message_text" jsonschema:"required"`

	// Referenced is carried for compatibility with the record format; nothing sets it.
	Referenced bool `json:"referenced"`
}

// Snapshot indexes unread messages by contact name, preserving first-seen order.
// A contact appears at most once; putting a known contact replaces its value in place.
//
// The zero value is not usable; call NewSnapshot. A nil *Snapshot reads as empty.
type Snapshot struct {
	order  []string
	byName map[string]UnreadMessage
}

func NewSnapshot() *Snapshot {
	return &Snapshot{byName: map[string]UnreadMessage{}}
}

// Put stores m under m.ContactName (last write wins).
func (s *Snapshot) Put(m UnreadMessage) {
	if _, ok := s.byName[m.ContactName]; !ok {
		s.order = append(s.order, m.ContactName)
	}
	s.byName[m.ContactName] = m
}

func (s *Snapshot) Get(contact string) (UnreadMessage, bool) {
	if s == nil {
		return UnreadMessage{}, false
	}
	m, ok := s.byName[contact]
	return m, ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Contacts returns the contact names in snapshot order.
func (s *Snapshot) Contacts() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Messages returns the entries in snapshot order.
func (s *Snapshot) Messages() []UnreadMessage {
	if s == nil {
		return nil
	}
	out := make([]UnreadMessage, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

func (s *Snapshot) TotalUnread() int {
	total := 0
	for _, m := range s.Messages() {
		total += m.UnreadCount
	}
	return total
}
