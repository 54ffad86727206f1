package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	// connectWait bounds how long startup waits for the first good ping.
	connectWait  = 20 * time.Second
	pingInterval = 500 * time.Millisecond
)

// PostgresConfig selects the database. URL wins when set; otherwise a URL
// is assembled from the discrete fields.
type PostgresConfig struct {
	URL      string
	User     string
	Password string
	Host     string
	Database string
}

func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	return u.String()
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a pool, waits for the server and applies the
// schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := cfg.DSN()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := waitForPing(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if err := runMigrations(dialectPostgres, dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func waitForPing(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		err := pool.Ping(ctx)
		if err == nil {
			return nil
		}
		slog.DebugContext(ctx, "Waiting for postgres", "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not reachable after %s: %w", connectWait, err)
		case <-ticker.C:
		}
	}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LogDecision(ctx context.Context, d Decision) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agent_decision_log (user_message, agent_state, llm_reasoning, action_taken, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.UserMessage, d.AgentState, d.LLMReasoning, d.ActionTaken, nullJSON(d.Result),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}
	return id, nil
}

const decisionColumns = `id, user_message, agent_state, llm_reasoning, action_taken, result, created_at`

func (s *PostgresStore) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+decisionColumns+`
		FROM agent_decision_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanDecision)
	if err != nil {
		return nil, fmt.Errorf("collect decisions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetDecision(ctx context.Context, id int64) (Decision, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+decisionColumns+` FROM agent_decision_log WHERE id = $1`, id)
	if err != nil {
		return Decision{}, fmt.Errorf("query decision: %w", err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDecision)
	if errors.Is(err, pgx.ErrNoRows) {
		return Decision{}, ErrNotFound
	}
	if err != nil {
		return Decision{}, fmt.Errorf("collect decision: %w", err)
	}
	return d, nil
}

func scanDecision(row pgx.CollectableRow) (Decision, error) {
	var d Decision
	var result []byte
	err := row.Scan(&d.ID, &d.UserMessage, &d.AgentState, &d.LLMReasoning, &d.ActionTaken, &result, &d.CreatedAt)
	d.Result = result
	return d, err
}

func (s *PostgresStore) SaveMessage(ctx context.Context, m ChatMessage) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (user_id, role, content, reasoning, session_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.UserID, m.Role, m.Content, m.Reasoning, m.SessionID, nullJSON(m.Metadata),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chat message: %w", err)
	}
	return id, nil
}

const messageColumns = `id, user_id, role, content, reasoning, timestamp, session_id, metadata`

func (s *PostgresStore) UserMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY timestamp ASC, id ASC
		LIMIT $2`, userID, limit)
}

func (s *PostgresStore) SessionMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY timestamp ASC, id ASC`, sessionID)
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChatMessage, error) {
		var m ChatMessage
		var metadata []byte
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Reasoning, &m.Timestamp, &m.SessionID, &metadata)
		m.Metadata = metadata
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect chat messages: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteUserMessages(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete chat messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete chat messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
