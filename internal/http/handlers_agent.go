package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"finagent/internal/agent"
	"finagent/internal/core"
	"finagent/internal/log"
	"finagent/internal/storage"
)

const (
	maxChatMessage = 1000
	maxAgentText   = 500
)

type chatRequest struct {
	Message string `json:"message"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	msg, err := requireText("message", req.Message, maxChatMessage)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	resp, err := s.agent.ProcessMessage(r.Context(), msg)
	if err != nil {
		writeError(w, r, newHTTPError(http.StatusInternalServerError, "Error processing message: %v", err), http.StatusBadRequest)
		return
	}
	s.recordDecision(r.Context(), msg, string(resp.State), resp.Reasoning, string(resp.ActionTaken), resp.Data)
	writeJSON(w, http.StatusOK, resp)
}

// recordDecision writes the decision log. Failures are logged only.
func (s *Server) recordDecision(ctx context.Context, message, state, reasoning, action string, data any) {
	if s.logs == nil {
		return
	}
	var result json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			s.logger.WarnContext(ctx, "Could not encode decision result", log.FieldError, err)
		} else {
			result = b
		}
	}
	_, err := s.logs.LogDecision(ctx, storage.Decision{
		UserMessage:  message,
		AgentState:   state,
		LLMReasoning: reasoning,
		ActionTaken:  action,
		Result:       result,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Could not record agent decision", log.FieldAction, action, log.FieldError, err)
	}
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	text, err := requireText("text", req.Text, maxAgentText)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	parsed, created, err := s.agent.AddExpense(r.Context(), text)
	switch {
	case errors.Is(err, agent.ErrUnparseable):
		writeDetail(w, http.StatusBadRequest, "Could not parse expense from text. Please try rephrasing.")
		return
	case err != nil:
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	confidence := fmt.Sprintf("%.0f%%", parsed.Confidence*100)
	s.decision.LogDecision(r.Context(), string(agent.IntentAddExpense), string(agent.ActionAddExpense), string(agent.StateCompleted), true)
	s.recordDecision(r.Context(), text, string(agent.StateCompleted), "Parsed expense with "+confidence+" confidence",
		string(agent.ActionAddExpense), map[string]any{"expense": parsed, "expense_id": created.ID})

	writeJSON(w, http.StatusOK, agent.ChatResponse{
		Message:     fmt.Sprintf("Added expense: $%s at %s for %s", parsed.Amount, parsed.Merchant, parsed.Category),
		Reasoning:   "Parsed with " + confidence + " confidence",
		ActionTaken: agent.ActionAddExpense,
		State:       agent.StateCompleted,
		Data:        map[string]any{"expense": parsed},
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	var req agent.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	// A confirmed delete by id does not need a query.
	if !(req.Confirmed && req.TransactionID != "") {
		q, err := requireText("query", req.Query, maxAgentText)
		if err != nil {
			writeError(w, r, err, http.StatusUnprocessableEntity)
			return
		}
		req.Query = q
	}
	writeJSON(w, http.StatusOK, s.agent.DeleteTransaction(r.Context(), req))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req core.ReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	report, err := s.agent.GenerateReport(r.Context(), req)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	text, err := requireText("text", req.Text, maxAgentText)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, s.agent.SetBudget(r.Context(), text))
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, "limit", 10, 100)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if s.logs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"decisions": []storage.Decision{}})
		return
	}
	decisions, err := s.logs.RecentDecisions(r.Context(), limit)
	if err != nil {
		writeError(w, r, newHTTPError(http.StatusInternalServerError, "Error retrieving decisions: %v", err), http.StatusBadRequest)
		return
	}
	if decisions == nil {
		decisions = []storage.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}
