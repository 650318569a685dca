package prismic

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("document not found")

// APIError is returned when the repository answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prismic api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("prismic api: http %d: %s", e.StatusCode, e.Message)
}
