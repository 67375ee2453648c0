// Package journal keeps an append-only SQLite log of assistant exchanges.
// Each Journal tags its rows with a fresh session id, so separate runs can be told apart.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/unread-assistant/inbox"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/provider"
)

// Entry is a stored exchange.
type Entry struct {
	ID           string
	SessionID    string
	At           time.Time
	Query        string
	Reply        string
	Contact      string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	FailureKind  provider.FailureKind
	Err          string
}

// Journal implements inbox.Recorder.
type Journal struct {
	db        *sql.DB
	sessionID string
}

var _ inbox.Recorder = (*Journal)(nil)

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal: path is empty")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}

	j := &Journal{db: db, sessionID: uuid.NewString()}
	if err := j.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) SessionID() string { return j.sessionID }

func (j *Journal) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL,
		at            TEXT NOT NULL,
		query         TEXT NOT NULL,
		reply         TEXT NOT NULL DEFAULT '',
		contact       TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT '',
		model         TEXT NOT NULL DEFAULT '',
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		failure_kind  TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, at);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Record stores ex under this journal's session.
func (j *Journal) Record(ctx context.Context, ex inbox.Exchange) error {
	at := ex.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, session_id, at, query, reply, contact, provider, model,
			input_tokens, output_tokens, failure_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), j.sessionID, at.UTC().Format(time.RFC3339Nano),
		ex.Query, ex.Reply, ex.Contact, ex.Provider, ex.Model,
		ex.Usage.InputTokens, ex.Usage.OutputTokens, string(ex.FailureKind), ex.Err,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit exchanges from this session, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, at, query, reply, contact, provider, model,
			input_tokens, output_tokens, failure_kind, error
		FROM (
			SELECT rowid AS seq, * FROM exchanges
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC`, j.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at, kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &at, &e.Query, &e.Reply, &e.Contact, &e.Provider, &e.Model,
			&e.InputTokens, &e.OutputTokens, &kind, &e.Err); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse exchange time: %w", err)
		}
		e.FailureKind = provider.FailureKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
