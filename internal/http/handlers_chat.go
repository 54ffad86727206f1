package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"finagent/internal/auth"
	"finagent/internal/log"
	"finagent/internal/storage"
)

const (
	defaultChatLimit = 100
	maxChatLimit     = 1000
)

var chatRoles = map[string]bool{"user": true, "assistant": true, "system": true}

type saveMessageRequest struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Reasoning *string         `json:"reasoning"`
	SessionID *string         `json:"session_id"`
	Metadata  jsonObjectOrNil `json:"metadata"`
}

// jsonObjectOrNil keeps the raw metadata document, dropping a literal null.
type jsonObjectOrNil []byte

func (j *jsonObjectOrNil) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*j = nil
		return nil
	}
	if len(b) == 0 || b[0] != '{' {
		return fmt.Errorf("metadata must be an object")
	}
	*j = append((*j)[:0], b...)
	return nil
}

type deletedResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

func deleted(n int64) deletedResponse {
	return deletedResponse{Message: fmt.Sprintf("Deleted %d messages successfully", n), DeletedCount: n}
}

// withUser resolves the caller from the Authorization header.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := auth.SubjectFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(auth.WithSubject(r.Context(), sub)))
	}
}

// chatLog returns the log store or writes 503 when none is configured.
func (s *Server) chatLog(w http.ResponseWriter) (storage.ChatLog, bool) {
	if s.logs == nil {
		writeDetail(w, http.StatusServiceUnavailable, "Chat history is not available")
		return nil, false
	}
	return s.logs, true
}

func (s *Server) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.chatLog(w)
	if !ok {
		return
	}
	var req saveMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	role := strings.TrimSpace(req.Role)
	if !chatRoles[role] {
		writeDetail(w, http.StatusUnprocessableEntity, "role must be one of user, assistant, system")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "content must not be empty")
		return
	}

	user, _ := auth.Subject(r.Context())
	id, err := logs.SaveMessage(r.Context(), storage.ChatMessage{
		UserID:    user,
		Role:      role,
		Content:   req.Content,
		Reasoning: req.Reasoning,
		SessionID: req.SessionID,
		Metadata:  []byte(req.Metadata),
	})
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "Message saved successfully"})
}

func (s *Server) handleUserMessages(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.chatLog(w)
	if !ok {
		return
	}
	limit, err := queryLimit(r, "limit", defaultChatLimit, maxChatLimit)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	user, _ := auth.Subject(r.Context())
	msgs, err := logs.UserMessages(r.Context(), user, limit)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.chatLog(w)
	if !ok {
		return
	}
	msgs, err := logs.SessionMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

func (s *Server) handleDeleteUserMessages(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.chatLog(w)
	if !ok {
		return
	}
	user, _ := auth.Subject(r.Context())
	n, err := logs.DeleteUserMessages(r.Context(), user)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	s.logger.InfoContext(r.Context(), "Chat history deleted", log.FieldUserID, user, "deleted_count", n)
	writeJSON(w, http.StatusOK, deleted(n))
}

func (s *Server) handleDeleteSessionMessages(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.chatLog(w)
	if !ok {
		return
	}
	session := r.PathValue("id")
	n, err := logs.DeleteSessionMessages(r.Context(), session)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	s.logger.InfoContext(r.Context(), "Chat session deleted", log.FieldSessionID, session, "deleted_count", n)
	writeJSON(w, http.StatusOK, deleted(n))
}

func nonNil(msgs []storage.ChatMessage) []storage.ChatMessage {
	if msgs == nil {
		return []storage.ChatMessage{}
	}
	return msgs
}
