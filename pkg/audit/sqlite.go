// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openquant/quorum/pkg/core"
)

// SQLiteStore persists audit events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the audit database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	created := event.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_audit (
			batch_id, request_id, agent_name, kind, sentiment, confidence, denied_tool, detail, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.BatchID,
		event.RequestID,
		event.AgentName,
		string(event.Kind),
		string(event.Sentiment),
		event.Confidence,
		event.DeniedTool,
		event.Detail,
		event.Duration.Milliseconds(),
		created,
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT batch_id, request_id, agent_name, kind, sentiment, confidence, denied_tool, detail, duration_ms, created_at
		FROM invocation_audit
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.BatchID != "" {
		addFilter("batch_id = ?", filter.BatchID)
	}
	if filter.AgentName != "" {
		addFilter("agent_name = ?", filter.AgentName)
	}
	if filter.Kind != "" {
		addFilter("kind = ?", string(filter.Kind))
	}
	query += where + " ORDER BY created_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			kind       string
			sentiment  string
			durationMs int64
			created    sql.NullTime
		)
		if err := rows.Scan(
			&event.BatchID,
			&event.RequestID,
			&event.AgentName,
			&kind,
			&sentiment,
			&event.Confidence,
			&event.DeniedTool,
			&event.Detail,
			&durationMs,
			&created,
		); err != nil {
			return nil, err
		}
		event.Kind = core.OutcomeKind(kind)
		event.Sentiment = core.Sentiment(sentiment)
		event.Duration = time.Duration(durationMs) * time.Millisecond
		if created.Valid {
			event.CreatedAt = created.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS invocation_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			sentiment TEXT,
			confidence REAL,
			denied_tool TEXT,
			detail TEXT,
			duration_ms INTEGER,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_invocation_audit_batch ON invocation_audit(batch_id);
		CREATE INDEX IF NOT EXISTS idx_invocation_audit_agent ON invocation_audit(agent_name);
		CREATE INDEX IF NOT EXISTS idx_invocation_audit_kind ON invocation_audit(kind);
	`)
	return err
}
