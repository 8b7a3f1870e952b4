package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avholm/bookdb/book"
)

// fakeStore is an in-memory Store for testing the catalogue without a
// database.
type fakeStore struct {
	books   []book.Book
	authors []book.Author
	links   []book.Link

	loadErr error
	saveErr error

	saved      bool
	savedBooks []book.Book
	savedAuths []book.Author
	savedLinks []book.Link
}

func (s *fakeStore) LoadAll(ctx context.Context) ([]book.Book, []book.Author, []book.Link, error) {
	if s.loadErr != nil {
		return nil, nil, nil, s.loadErr
	}
	return s.books, s.authors, s.links, nil
}

func (s *fakeStore) SaveAll(ctx context.Context, books []book.Book, authors []book.Author, links []book.Link) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = true
	s.savedBooks = books
	s.savedAuths = authors
	s.savedLinks = links
	return nil
}

func date(s string) time.Time {
	t, err := time.Parse(book.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadReconstructsEdges(t *testing.T) {
	store := &fakeStore{
		books: []book.Book{
			{ID: 1, ISBN: "111", Title: "Analytical Engine", Published: date("1843-01-01"), Genre: book.NonFiction, Rating: 5},
		},
		authors: []book.Author{
			{ID: 1, FirstName: "Ada", LastName: "Lovelace", BirthDay: date("1815-12-10")},
		},
		links: []book.Link{{AuthorID: 1, BookID: 1}},
	}
	c := New(store)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	books := c.Books()
	if len(books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books))
	}
	if len(books[0].Authors) != 1 {
		t.Fatalf("expected 1 author on book, got %d", len(books[0].Authors))
	}
	if got := books[0].Authors[0].FirstName; got != "ada" {
		t.Errorf("expected lower-cased first name %q, got %q", "ada", got)
	}

	authors := c.Authors()
	if len(authors) != 1 {
		t.Fatalf("expected 1 author, got %d", len(authors))
	}
	if len(authors[0].Books) != 1 {
		t.Fatalf("expected 1 book on author, got %d", len(authors[0].Books))
	}
	if got := authors[0].Books[0].Title; got != "Analytical Engine" {
		t.Errorf("expected title %q, got %q", "Analytical Engine", got)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	c := New(&fakeStore{})
	if _, err := c.CreateBook("Notes", "111", "Fiction", "3"); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	c.store = &fakeStore{loadErr: errors.New("connection refused")}
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected Load to fail")
	}
	if len(c.Books()) != 1 {
		t.Errorf("expected in-memory state untouched after failed load, got %d books", len(c.Books()))
	}
}

func TestCreateBookIDPolicy(t *testing.T) {
	c := New(&fakeStore{})

	// With no books at all the first id is still 2.
	first, err := c.CreateBook("Notes", "111", "Fiction", "3")
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	if first.ID != 2 {
		t.Errorf("expected first id 2, got %d", first.ID)
	}

	second, err := c.CreateBook("Other", "222", "Fiction", "3")
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	if second.ID != 3 {
		t.Errorf("expected second id 3, got %d", second.ID)
	}
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	c := New(&fakeStore{})
	first, err := c.CreateBook("Notes", "111", "Fiction", "3")
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	// Same ISBN again: no new book, the existing one comes back even when
	// the other attributes would not parse.
	again, err := c.CreateBook("Different Title", "111", "no-such-genre", "99")
	if err != nil {
		t.Fatalf("expected duplicate ISBN to be a no-op, got %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected existing book id %d, got %d", first.ID, again.ID)
	}
	if again.Title != "Notes" {
		t.Errorf("expected existing title %q, got %q", "Notes", again.Title)
	}
	if len(c.Books()) != 1 {
		t.Errorf("expected 1 book, got %d", len(c.Books()))
	}
}

func TestCreateBookInvalidInput(t *testing.T) {
	c := New(&fakeStore{})

	if _, err := c.CreateBook("Notes", "111", "no-such-genre", "3"); !errors.Is(err, book.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad genre, got %v", err)
	}
	if _, err := c.CreateBook("Notes", "111", "Fiction", "six"); !errors.Is(err, book.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad rating, got %v", err)
	}
	if _, err := c.CreateBook("Notes", "111", "Fiction", "6"); !errors.Is(err, book.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for out-of-range rating, got %v", err)
	}
	if len(c.Books()) != 0 {
		t.Errorf("expected no books after rejected input, got %d", len(c.Books()))
	}
}

func TestCreateAuthorNormalizes(t *testing.T) {
	c := New(&fakeStore{})
	a := c.CreateAuthor("Ada", "LOVELACE", time.Date(1815, 12, 10, 13, 45, 0, 0, time.UTC))

	if a.ID != 2 {
		t.Errorf("expected first author id 2, got %d", a.ID)
	}
	if a.FirstName != "ada" || a.LastName != "lovelace" {
		t.Errorf("expected lower-cased names, got %q %q", a.FirstName, a.LastName)
	}
	if !a.BirthDay.Equal(date("1815-12-10")) {
		t.Errorf("expected birthday truncated to date, got %v", a.BirthDay)
	}
}

func TestRate(t *testing.T) {
	c := New(&fakeStore{})
	b, err := c.CreateBook("Notes", "111", "Fiction", "3")
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	if err := c.Rate(b.ID, 5); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if got := c.Books()[0].Rating; got != 5 {
		t.Errorf("expected rating 5, got %d", got)
	}

	// Out-of-range rating is rejected and leaves the book untouched.
	if err := c.Rate(b.ID, 7); !errors.Is(err, book.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if got := c.Books()[0].Rating; got != 5 {
		t.Errorf("expected rating unchanged at 5, got %d", got)
	}

	// Unknown id with a valid rating is a silent no-op.
	if err := c.Rate(9999, 4); err != nil {
		t.Errorf("expected unknown id to be a no-op, got %v", err)
	}
}

func TestLink(t *testing.T) {
	c := New(&fakeStore{})
	b, err := c.CreateBook("Notes", "111", "Fiction", "3")
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	a := c.CreateAuthor("ada", "lovelace", date("1815-12-10"))

	if !c.Link(b.ID, a.ID) {
		t.Error("expected first Link to report true")
	}
	if c.Link(b.ID, a.ID) {
		t.Error("expected duplicate Link to report false")
	}
	if c.Link(9999, a.ID) {
		t.Error("expected Link with unknown book to report false")
	}
	if c.Link(b.ID, 9999) {
		t.Error("expected Link with unknown author to report false")
	}

	if got := len(c.Books()[0].Authors); got != 1 {
		t.Errorf("expected exactly 1 edge, got %d", got)
	}
	if got := len(c.Authors()[0].Books); got != 1 {
		t.Errorf("expected exactly 1 edge on the author side, got %d", got)
	}
}

func TestFlushPayload(t *testing.T) {
	store := &fakeStore{}
	c := New(store)

	b1, _ := c.CreateBook("Notes", "111", "Fiction", "3")
	b2, _ := c.CreateBook("Other", "222", "Mystery", "4")
	a := c.CreateAuthor("ada", "lovelace", date("1815-12-10"))
	c.Link(b1.ID, a.ID)
	c.Link(b2.ID, a.ID)

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if !store.saved {
		t.Fatal("expected SaveAll to be called")
	}
	if len(store.savedBooks) != 2 || len(store.savedAuths) != 1 {
		t.Fatalf("expected 2 books and 1 author saved, got %d and %d",
			len(store.savedBooks), len(store.savedAuths))
	}
	// Books go out in insertion order so the store can regenerate ids.
	if store.savedBooks[0].Title != "Notes" || store.savedBooks[1].Title != "Other" {
		t.Errorf("expected insertion order, got %q then %q",
			store.savedBooks[0].Title, store.savedBooks[1].Title)
	}
	if len(store.savedLinks) != 2 {
		t.Fatalf("expected 2 links, got %d", len(store.savedLinks))
	}
}

func TestFlushFailureLeavesModelUsable(t *testing.T) {
	store := &fakeStore{saveErr: &book.StoreError{Op: "flush", Err: errors.New("connection refused")}}
	c := New(store)
	b, _ := c.CreateBook("Notes", "111", "Fiction", "3")

	err := c.Flush(context.Background())
	var storeErr *book.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}

	// The graph is intact: further edits and a retry both work.
	if err := c.Rate(b.ID, 5); err != nil {
		t.Fatalf("Rate after failed flush: %v", err)
	}
	store.saveErr = nil
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("retried Flush failed: %v", err)
	}
	if store.savedBooks[0].Rating != 5 {
		t.Errorf("expected retried flush to carry the new rating, got %d", store.savedBooks[0].Rating)
	}
}
