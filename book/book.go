// Package book holds the catalogue entities shared by the in-memory model
// and the persistence adapter.
package book

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire format for the published and birthDay DATE columns.
const DateLayout = "2006-01-02"

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Book is a catalogue entry. Authors is materialized on snapshots returned
// by the catalogue; the model itself keeps authorship in an adjacency
// structure, not inside the entity.
type Book struct {
	ID        int64     `json:"book_id"`
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Published time.Time `json:"published"`
	Genre     Genre     `json:"genre"`
	Rating    int       `json:"rating"`
	Authors   []Author  `json:"authors,omitempty"`
}

// Author is a book author. First and last names are kept lower-cased.
// Books is materialized on snapshots, like Book.Authors.
type Author struct {
	ID        int64     `json:"author_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDay  time.Time `json:"birth_day"`
	Books     []Book    `json:"books,omitempty"`
}

// Link is a single (author, book) authorship edge.
type Link struct {
	AuthorID int64 `json:"author_id"`
	BookID   int64 `json:"book_id"`
}

// ParseRating parses a user-supplied rating string into an integer in [1,5].
func ParseRating(s string) (int, error) {
	r, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: rating %q is not an integer", ErrInvalidInput, s)
	}
	if r < MinRating || r > MaxRating {
		return 0, fmt.Errorf("%w: rating %d out of range [%d,%d]", ErrInvalidInput, r, MinRating, MaxRating)
	}
	return r, nil
}
