package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"finagent/internal/core"
	"finagent/internal/ledger"
)

func TestClassify(t *testing.T) {
	apiErr := &ledger.APIError{Op: "query expenses", Status: 502, Message: "bad gateway"}
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"handler error", newHTTPError(http.StatusConflict, "busy"), http.StatusConflict, "busy"},
		{"api error", apiErr, http.StatusInternalServerError, "Notion API error: query expenses: bad gateway (status 502)"},
		{"wrapped api error", fmt.Errorf("list: %w", apiErr), http.StatusInternalServerError, "Notion API error: list: query expenses: bad gateway (status 502)"},
		{"validation", core.ErrInvalidAmount, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"not found", fmt.Errorf("get: %w", ledger.ErrNotFound), http.StatusNotFound, "Not found"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := classify(tt.err, http.StatusUnprocessableEntity)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}
