package catalog

import (
	"strings"

	"github.com/avholm/bookdb/book"
)

// Search results carry no ordering guarantee beyond the current in-memory
// order, which changes across mutations and reloads.

// SearchByTitle returns all books whose title contains q, case-insensitively.
func (c *Catalog) SearchByTitle(q string) []book.Book {
	q = strings.ToLower(q)
	result := make([]book.Book, 0)
	for _, id := range c.bookOrder {
		if strings.Contains(strings.ToLower(c.books[id].Title), q) {
			result = append(result, c.bookSnapshot(id))
		}
	}
	return result
}

// SearchByISBN returns all books whose ISBN contains q. ISBNs are opaque
// strings, so the match is case-sensitive.
func (c *Catalog) SearchByISBN(q string) []book.Book {
	result := make([]book.Book, 0)
	for _, id := range c.bookOrder {
		if strings.Contains(c.books[id].ISBN, q) {
			result = append(result, c.bookSnapshot(id))
		}
	}
	return result
}

// SearchByAuthor returns all books with at least one matching author, where
// a match is a case-insensitive substring of the author's "first last"
// name. A book is appended once per matching author, so a book with two
// matching authors appears twice.
func (c *Catalog) SearchByAuthor(q string) []book.Book {
	q = strings.ToLower(q)
	result := make([]book.Book, 0)
	for _, id := range c.bookOrder {
		for _, aid := range c.authorsOf[id] {
			a := c.authors[aid]
			if strings.Contains(a.FirstName+" "+a.LastName, q) {
				result = append(result, c.bookSnapshot(id))
			}
		}
	}
	return result
}

// SearchByRating returns all books whose rating equals the parsed value of
// q. A rating that does not parse to an integer in [1,5] yields
// book.ErrInvalidInput.
func (c *Catalog) SearchByRating(q string) ([]book.Book, error) {
	rating, err := book.ParseRating(q)
	if err != nil {
		return nil, err
	}
	result := make([]book.Book, 0)
	for _, id := range c.bookOrder {
		if c.books[id].Rating == rating {
			result = append(result, c.bookSnapshot(id))
		}
	}
	return result, nil
}

// SearchByGenre returns all books of exactly the given genre. An unknown
// genre name yields book.ErrInvalidInput.
func (c *Catalog) SearchByGenre(q string) ([]book.Book, error) {
	genre, err := book.ParseGenre(q)
	if err != nil {
		return nil, err
	}
	result := make([]book.Book, 0)
	for _, id := range c.bookOrder {
		if c.books[id].Genre == genre {
			result = append(result, c.bookSnapshot(id))
		}
	}
	return result, nil
}
