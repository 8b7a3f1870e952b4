// Package catalog owns the in-memory catalogue: books, authors, and the
// authorship edges between them. The graph is loaded wholesale from the
// store, mutated in memory by user actions, and flushed back wholesale.
//
// The model follows a single-threaded cooperative contract: all operations
// must be serialized by the caller. Load and Flush block on store I/O;
// everything else is an in-memory computation.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avholm/bookdb/book"
)

// Store is the persistence adapter the catalogue synchronizes with.
// LoadAll returns the full persisted state; SaveAll replaces the persisted
// state with the given one.
type Store interface {
	LoadAll(ctx context.Context) ([]book.Book, []book.Author, []book.Link, error)
	SaveAll(ctx context.Context, books []book.Book, authors []book.Author, links []book.Link) error
}

// Catalog is the authoritative in-memory graph. Entities live in id-keyed
// maps and edges in an adjacency structure, so there is no ownership cycle
// between books and authors; snapshots materialize the other side of each
// edge on demand.
type Catalog struct {
	store Store

	books   map[int64]*book.Book
	authors map[int64]*book.Author

	// Insertion order, which the flush protocol relies on: the store
	// assigns persistent ids 1..N in exactly this order.
	bookOrder   []int64
	authorOrder []int64

	authorsOf map[int64][]int64 // book id -> author ids, link order
	booksOf   map[int64][]int64 // author id -> book ids, link order
}

// New creates an empty catalogue backed by the given store.
func New(store Store) *Catalog {
	c := &Catalog{store: store}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.books = make(map[int64]*book.Book)
	c.authors = make(map[int64]*book.Author)
	c.bookOrder = nil
	c.authorOrder = nil
	c.authorsOf = make(map[int64][]int64)
	c.booksOf = make(map[int64][]int64)
}

// Load replaces the in-memory graph with the persisted state. Edges are
// reconstructed in both directions. Store failures are propagated and
// leave the previous in-memory state untouched.
func (c *Catalog) Load(ctx context.Context) error {
	books, authors, links, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	c.reset()
	for _, b := range books {
		b := b
		b.Authors = nil
		c.books[b.ID] = &b
		c.bookOrder = append(c.bookOrder, b.ID)
	}
	for _, a := range authors {
		a := a
		a.FirstName = strings.ToLower(a.FirstName)
		a.LastName = strings.ToLower(a.LastName)
		a.Books = nil
		c.authors[a.ID] = &a
		c.authorOrder = append(c.authorOrder, a.ID)
	}
	for _, l := range links {
		c.addEdge(l.BookID, l.AuthorID)
	}
	return nil
}

// Flush replaces the persisted state with the current graph. The in-memory
// graph is never modified, so a failed flush leaves the model fully usable.
func (c *Catalog) Flush(ctx context.Context) error {
	books := make([]book.Book, 0, len(c.bookOrder))
	for _, id := range c.bookOrder {
		books = append(books, *c.books[id])
	}
	authors := make([]book.Author, 0, len(c.authorOrder))
	for _, id := range c.authorOrder {
		authors = append(authors, *c.authors[id])
	}
	var links []book.Link
	for _, bid := range c.bookOrder {
		for _, aid := range c.authorsOf[bid] {
			links = append(links, book.Link{AuthorID: aid, BookID: bid})
		}
	}
	return c.store.SaveAll(ctx, books, authors, links)
}

// Books returns a defensive snapshot of all books with their author lists
// materialized from the adjacency structure.
func (c *Catalog) Books() []book.Book {
	out := make([]book.Book, 0, len(c.bookOrder))
	for _, id := range c.bookOrder {
		out = append(out, c.bookSnapshot(id))
	}
	return out
}

// Authors returns a defensive snapshot of all authors with their book lists
// materialized.
func (c *Catalog) Authors() []book.Author {
	out := make([]book.Author, 0, len(c.authorOrder))
	for _, id := range c.authorOrder {
		out = append(out, c.authorSnapshot(id))
	}
	return out
}

// CreateBook adds a new book with the given attributes and Published set to
// today. A duplicate ISBN is a silent no-op that returns the existing book.
// Malformed genre or rating yields book.ErrInvalidInput.
func (c *Catalog) CreateBook(title, isbn, genre, rating string) (book.Book, error) {
	for _, id := range c.bookOrder {
		if c.books[id].ISBN == isbn {
			return c.bookSnapshot(id), nil
		}
	}

	g, err := book.ParseGenre(genre)
	if err != nil {
		return book.Book{}, err
	}
	r, err := book.ParseRating(rating)
	if err != nil {
		return book.Book{}, err
	}

	b := &book.Book{
		ID:        nextID(c.books),
		ISBN:      isbn,
		Title:     title,
		Published: today(),
		Genre:     g,
		Rating:    r,
	}
	c.books[b.ID] = b
	c.bookOrder = append(c.bookOrder, b.ID)
	return c.bookSnapshot(b.ID), nil
}

// CreateAuthor adds a new author. Names are stored lower-cased and the
// birthday is truncated to a calendar date.
func (c *Catalog) CreateAuthor(first, last string, birthDay time.Time) book.Author {
	a := &book.Author{
		ID:        nextID(c.authors),
		FirstName: strings.ToLower(first),
		LastName:  strings.ToLower(last),
		BirthDay:  truncateToDate(birthDay),
	}
	c.authors[a.ID] = a
	c.authorOrder = append(c.authorOrder, a.ID)
	return c.authorSnapshot(a.ID)
}

// Rate sets the rating of the book with the given id. An unknown id is a
// silent no-op; a rating outside [1,5] is rejected before any lookup.
func (c *Catalog) Rate(bookID int64, rating int) error {
	if rating < book.MinRating || rating > book.MaxRating {
		return fmt.Errorf("%w: rating %d out of range [%d,%d]",
			book.ErrInvalidInput, rating, book.MinRating, book.MaxRating)
	}
	if b, ok := c.books[bookID]; ok {
		b.Rating = rating
	}
	return nil
}

// Link installs the authorship edge between the given book and author in
// both directions. It reports whether the edge was newly added; an already
// present edge or an unknown id on either side is a no-op returning false.
func (c *Catalog) Link(bookID, authorID int64) bool {
	if _, ok := c.books[bookID]; !ok {
		return false
	}
	if _, ok := c.authors[authorID]; !ok {
		return false
	}
	for _, aid := range c.authorsOf[bookID] {
		if aid == authorID {
			return false
		}
	}
	c.addEdge(bookID, authorID)
	return true
}

// addEdge installs the edge without any existence or duplicate checks;
// callers validate first. Unknown endpoints are skipped to keep the two
// adjacency maps consistent.
func (c *Catalog) addEdge(bookID, authorID int64) {
	if _, ok := c.books[bookID]; !ok {
		return
	}
	if _, ok := c.authors[authorID]; !ok {
		return
	}
	c.authorsOf[bookID] = append(c.authorsOf[bookID], authorID)
	c.booksOf[authorID] = append(c.booksOf[authorID], bookID)
}

// bookSnapshot copies the book and materializes its author list. The
// nested authors carry no book lists of their own, which keeps snapshots
// acyclic.
func (c *Catalog) bookSnapshot(id int64) book.Book {
	b := *c.books[id]
	for _, aid := range c.authorsOf[id] {
		b.Authors = append(b.Authors, *c.authors[aid])
	}
	return b
}

func (c *Catalog) authorSnapshot(id int64) book.Author {
	a := *c.authors[id]
	for _, bid := range c.booksOf[id] {
		a.Books = append(a.Books, *c.books[bid])
	}
	return a
}

// nextID implements the in-memory id policy: one past the highest existing
// id, never less than 2. The policy deliberately does not coordinate with
// persisted auto-increment sequences because every flush regenerates
// persistent ids from scratch.
func nextID[E any](entities map[int64]*E) int64 {
	highest := int64(1)
	for id := range entities {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}

func today() time.Time {
	return truncateToDate(time.Now())
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
