package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := runMigrations(dialectSQLite, dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(sqliteTimeLayout)
}

func parseStamp(v string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}

func (s *SQLiteStore) LogDecision(ctx context.Context, d Decision) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_decision_log (user_message, agent_state, llm_reasoning, action_taken, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		d.UserMessage, d.AgentState, d.LLMReasoning, d.ActionTaken, nullText(d.Result), s.stamp(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}
	return id, nil
}

const sqliteDecisionColumns = `id, user_message, agent_state, llm_reasoning, action_taken, result, created_at`

func (s *SQLiteStore) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteDecisionColumns+`
		FROM agent_decision_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]Decision, 0)
	for rows.Next() {
		d, err := scanSQLiteDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetDecision(ctx context.Context, id int64) (Decision, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteDecisionColumns+` FROM agent_decision_log WHERE id = ?`, id)
	d, err := scanSQLiteDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Decision{}, ErrNotFound
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDecision(r scanner) (Decision, error) {
	var (
		d       Decision
		result  sql.NullString
		created string
	)
	if err := r.Scan(&d.ID, &d.UserMessage, &d.AgentState, &d.LLMReasoning, &d.ActionTaken, &result, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("scan decision: %w", err)
	}
	if result.Valid {
		d.Result = []byte(result.String)
	}
	t, err := parseStamp(created)
	if err != nil {
		return Decision{}, err
	}
	d.CreatedAt = t
	return d, nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, m ChatMessage) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (user_id, role, content, reasoning, timestamp, session_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		m.UserID, m.Role, m.Content, m.Reasoning, s.stamp(), m.SessionID, nullText(m.Metadata),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chat message: %w", err)
	}
	return id, nil
}

const sqliteMessageColumns = `id, user_id, role, content, reasoning, timestamp, session_id, metadata`

func (s *SQLiteStore) UserMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+sqliteMessageColumns+`
		FROM chat_messages
		WHERE user_id = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ?`, userID, limit)
}

func (s *SQLiteStore) SessionMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+sqliteMessageColumns+`
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY timestamp ASC, id ASC`, sessionID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]ChatMessage, 0)
	for rows.Next() {
		var (
			m        ChatMessage
			ts       string
			metadata sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Reasoning, &ts, &m.SessionID, &metadata); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if m.Timestamp, err = parseStamp(ts); err != nil {
			return nil, err
		}
		if metadata.Valid {
			m.Metadata = []byte(metadata.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteUserMessages(ctx context.Context, userID string) (int64, error) {
	return s.deleteMessages(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	return s.deleteMessages(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
}

func (s *SQLiteStore) deleteMessages(ctx context.Context, query, arg string) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("delete chat messages: %w", err)
	}
	return res.RowsAffected()
}

// nullText stores a JSON document as TEXT, or NULL when empty.
func nullText(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
