package inbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultRecordsPath is where the notification ingester drops its unread summaries.
const DefaultRecordsPath = "whatsapp_recv.txt"

// BlockDelimiter separates one contact's block from the next.
const BlockDelimiter = "---------\n"

const fieldSeparator = ": "

var (
	// ErrNoData reports that the records file does not exist. Errors wrapping it also match fs.ErrNotExist.
	ErrNoData = errors.New("no unread message records available")

	ErrInvalidEncoding = errors.New("records are not valid UTF-8")
)

// ParseError describes the first malformed block in a records file.
type ParseError struct {
	// Block is the 1-based ordinal of the block among non-empty blocks.
	Block int
	// Line is the 1-based line within the block, or 0 when the block as a whole is short.
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse records: block %d: %v", e.Block, e.Err)
	}
	return fmt.Sprintf("parse records: block %d line %d (%s): %v", e.Block, e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errShortBlock       = errors.New("block has fewer than 4 lines")
	errMissingSeparator = fmt.Errorf("missing %q separator", fieldSeparator)
)

// LoadUnread reads and parses the records file at path.
//
// A missing file yields an empty snapshot and an error matching ErrNoData. On a *ParseError the
// returned snapshot holds the blocks that parsed before the bad one.
func LoadUnread(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSnapshot(), fmt.Errorf("%w: %w", ErrNoData, err)
		}
		return NewSnapshot(), fmt.Errorf("read records: %w", err)
	}
	if !utf8.Valid(b) {
		return NewSnapshot(), fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}
	return ParseRecords(string(b))
}

// ParseRecords builds a snapshot from the delimiter-separated record text.
func ParseRecords(text string) (*Snapshot, error) {
	snap := NewSnapshot()
	text = strings.ReplaceAll(text, "\r\n", "\n")

	ordinal := 0
	for _, raw := range strings.Split(text, BlockDelimiter) {
		block := strings.TrimSpace(raw)
		if block == "" {
			continue
		}
		ordinal++

		m, err := parseBlock(block)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Block = ordinal
			}
			return snap, err
		}
		snap.Put(m)
	}
	return snap, nil
}

func parseBlock(block string) (UnreadMessage, error) {
	lines := strings.Split(block, "\n")
	if len(lines) < 4 {
		return UnreadMessage{}, &ParseError{Err: errShortBlock}
	}

	var m UnreadMessage
	var err error
	if m.ContactName, err = fieldValue(lines, 0, "contact"); err != nil {
		return UnreadMessage{}, err
	}
	if m.ReceivedTime, err = fieldValue(lines, 1, "received time"); err != nil {
		return UnreadMessage{}, err
	}
	count, err := fieldValue(lines, 2, "unread count")
	if err != nil {
		return UnreadMessage{}, err
	}
	m.UnreadCount, err = strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return UnreadMessage{}, &ParseError{Line: 3, Field: "unread count", Err: err}
	}
	if m.MessageText, err = fieldValue(lines, 3, "message"); err != nil {
		return UnreadMessage{}, err
	}
	return m, nil
}

// fieldValue returns everything after the first separator on lines[i].
func fieldValue(lines []string, i int, field string) (string, error) {
	_, v, ok := strings.Cut(lines[i], fieldSeparator)
	if !ok {
		return "", &ParseError{Line: i + 1, Field: field, Err: errMissingSeparator}
	}
	return v, nil
}
