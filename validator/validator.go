// Package validator provides the shell-side input validation. The
// catalogue model has its own, stricter notion of invalid input; these
// checks reject obviously bad requests before they reach the model.
package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/avholm/bookdb/book"
)

// MinSearchLength is the minimum length for free-text search terms.
const MinSearchLength = 2

var (
	// ErrEmptyString is returned when a required string parameter is empty.
	ErrEmptyString = errors.New("string cannot be empty")
	// ErrSearchTooShort is returned when a free-text search term is shorter
	// than MinSearchLength.
	ErrSearchTooShort = fmt.Errorf("search term must be at least %d characters", MinSearchLength)
)

// ValidateSearchTerm validates a free-text search term (title, ISBN or
// author searches). Rating and genre searches are exact and not subject to
// the length rule.
func ValidateSearchTerm(q string) error {
	if len([]rune(q)) < MinSearchLength {
		return ErrSearchTooShort
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(s string) error {
	if s == "" {
		return ErrEmptyString
	}
	return nil
}

// ValidateID validates that an ID is positive.
func ValidateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid id: %d (must be positive)", id)
	}
	return nil
}

// ParseDate parses a calendar date in the catalogue's wire format.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(book.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want %s)", s, book.DateLayout)
	}
	return t, nil
}
