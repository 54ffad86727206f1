package http

import (
	"errors"
	"net/http"

	"finagent/internal/core"
	"finagent/internal/ledger"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	all, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	listed := core.Listable(all)
	for i := range listed {
		listed[i] = listed[i].WithDefaults()
	}
	writeJSON(w, http.StatusOK, listed)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, expenseNotFound(err, id), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, e.WithDefaults())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseCreate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Merchant = sanitizeInput(in.Merchant)
	in.Description = sanitizeInput(in.Description)
	if err := in.Validate(); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	e, err := s.expenses.CreateExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, e.WithDefaults())
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in core.ExpenseUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	e, err := s.expenses.UpdateExpense(r.Context(), id, in)
	if err != nil {
		writeError(w, r, expenseNotFound(err, id), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, e.WithDefaults())
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, expenseNotFound(err, id), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func expenseNotFound(err error, id string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return newHTTPError(http.StatusNotFound, "Expense %s not found", id)
	}
	return err
}
