package http

import (
	"errors"
	"net/http"

	"finagent/internal/core"
	"finagent/internal/ledger"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.GetBudget(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, budgetNotFound(err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetCreate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	in.Category = sanitizeInput(in.Category)
	if err := in.Validate(); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	b, err := s.budgets.CreateBudget(r.Context(), in)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	b, err := s.budgets.UpdateBudget(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, budgetNotFound(err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, budgetNotFound(err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Budget deleted successfully"})
}

func budgetNotFound(err error) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return newHTTPError(http.StatusNotFound, "Budget not found")
	}
	return err
}
