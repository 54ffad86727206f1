// Package storage is the relational log store: agent decisions and chat
// history. Postgres is used in production, SQLite for local runs and tests.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Decision is one agent pass as recorded in agent_decision_log.
type Decision struct {
	ID           int64           `json:"id"`
	UserMessage  string          `json:"user_message"`
	AgentState   string          `json:"agent_state"`
	LLMReasoning string          `json:"llm_reasoning"`
	ActionTaken  string          `json:"action_taken"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ChatMessage is one turn of a user's conversation.
type ChatMessage struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Reasoning *string         `json:"reasoning"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID *string         `json:"session_id"`
	Metadata  json.RawMessage `json:"metadata"`
}

type (
	DecisionLog interface {
		LogDecision(ctx context.Context, d Decision) (int64, error)
		// RecentDecisions returns the newest decisions first.
		RecentDecisions(ctx context.Context, limit int) ([]Decision, error)
		GetDecision(ctx context.Context, id int64) (Decision, error)
	}

	// ChatLog stores chat history. Listings are oldest first.
	ChatLog interface {
		SaveMessage(ctx context.Context, m ChatMessage) (int64, error)
		UserMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error)
		SessionMessages(ctx context.Context, sessionID string) ([]ChatMessage, error)
		DeleteUserMessages(ctx context.Context, userID string) (int64, error)
		DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error)
	}

	Store interface {
		DecisionLog
		ChatLog
		Close() error
	}
)

// nullJSON maps an empty document to SQL NULL.
func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
