package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a page does not exist or was archived.
var ErrNotFound = errors.New("not found")

// APIError wraps a failure reported by the backing page database.
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (status %d, %s)", e.Op, e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// IsAPIError reports whether err carries an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
