package blog

import (
	"errors"
	"fmt"
)

var (
	// ErrContentUnavailable wraps every failure of the content source.
	ErrContentUnavailable = errors.New("content unavailable")
	ErrPostNotFound       = errors.New("post not found")
	// ErrInvalidCursor is a caller bug: the cursor was empty or not issued by the content source.
	ErrInvalidCursor = errors.New("invalid cursor")
)

func unavailable(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrContentUnavailable, operation, err)
}
