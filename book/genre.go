package book

import "fmt"

// Genre is one of the eight literary categories the catalogue knows about.
// It is persisted as its textual enumerant.
type Genre string

const (
	Fiction        Genre = "Fiction"
	NonFiction     Genre = "NonFiction"
	ScienceFiction Genre = "ScienceFiction"
	Mystery        Genre = "Mystery"
	Fantasy        Genre = "Fantasy"
	Romance        Genre = "Romance"
	Thriller       Genre = "Thriller"
	Comedy         Genre = "Comedy"
)

var genres = []Genre{
	Fiction,
	NonFiction,
	ScienceFiction,
	Mystery,
	Fantasy,
	Romance,
	Thriller,
	Comedy,
}

// Genres returns the fixed list of valid genres, in declaration order.
func Genres() []Genre {
	out := make([]Genre, len(genres))
	copy(out, genres)
	return out
}

// ParseGenre maps a genre name onto its enumerant. The match is exact; the
// user-facing surface offers genres from a fixed list, so anything else is
// invalid input.
func ParseGenre(s string) (Genre, error) {
	for _, g := range genres {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown genre %q", ErrInvalidInput, s)
}

func (g Genre) String() string { return string(g) }
