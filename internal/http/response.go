package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"finagent/internal/core"
	"finagent/internal/ledger"
	"finagent/internal/log"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// httpError carries a status and detail chosen by a handler.
type httpError struct {
	status int
	detail string
}

func (e *httpError) Error() string { return e.detail }

func newHTTPError(status int, format string, args ...any) *httpError {
	return &httpError{status: status, detail: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error to a status and detail. Validation failures use
// validationStatus, which differs between routes.
func classify(err error, validationStatus int) (int, string) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.status, he.detail
	case ledger.IsAPIError(err):
		return http.StatusInternalServerError, "Notion API error: " + err.Error()
	case core.IsValidation(err):
		return validationStatus, err.Error()
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error: " + err.Error()
	}
}

// writeError logs err and writes it as {"detail": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error, validationStatus int) {
	status, detail := classify(err, validationStatus)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
