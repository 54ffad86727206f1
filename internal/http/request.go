package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxJSONBody caps request bodies other than receipt uploads.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON object into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return newHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			return newHTTPError(http.StatusUnprocessableEntity, "Request body is required")
		default:
			return newHTTPError(http.StatusUnprocessableEntity, "Invalid JSON body: %v", err)
		}
	}
	return nil
}

// sanitizeInput strips control characters other than tab and newlines,
// then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// requireText sanitizes value and checks its length in characters.
func requireText(field, value string, maxLen int) (string, error) {
	value = sanitizeInput(value)
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return "", newHTTPError(http.StatusUnprocessableEntity, "%s must not be empty", field)
	}
	if n > maxLen {
		return "", newHTTPError(http.StatusUnprocessableEntity, "%s must be at most %d characters", field, maxLen)
	}
	return value, nil
}

// queryLimit reads a positive integer query parameter, falling back to def.
func queryLimit(r *http.Request, name string, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, newHTTPError(http.StatusUnprocessableEntity, "%s must be a positive integer", name)
	}
	if n > max {
		n = max
	}
	return n, nil
}
