package repo

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avholm/bookdb/book"
	"github.com/avholm/bookdb/logger"
)

func init() {
	logger.Init("info")
}

// newTestRepo creates an adapter on a throwaway database file. The adapter
// opens a fresh connection per phase, so :memory: would lose the data
// between phases; the fixture has to live on disk.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r := New(filepath.Join(t.TempDir(), "test.db"), "", "")
	if err := r.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return r
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(book.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	r := newTestRepo(t)
	if err := r.EnsureSchema(); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
}

func TestBuildDSN(t *testing.T) {
	if got := buildDSN("books.db", "", ""); got != "file:books.db?mode=rwc" {
		t.Errorf("unexpected DSN: %q", got)
	}

	got := buildDSN("books.db", "alice", "secret")
	for _, want := range []string{"file:books.db?", "_auth", "_auth_user=alice", "_auth_pass=secret", "mode=rwc"} {
		if !strings.Contains(got, want) {
			t.Errorf("DSN %q missing %q", got, want)
		}
	}

	// A URL that already carries parameters keeps them.
	got = buildDSN("file:books.db?cache=shared", "alice", "secret")
	if !strings.Contains(got, "cache=shared") || !strings.Contains(got, "_auth_user=alice") {
		t.Errorf("unexpected DSN: %q", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	books := []book.Book{
		{ID: 7, ISBN: "111", Title: "Notes", Published: date(t, "1843-01-01"), Genre: book.NonFiction, Rating: 5},
		{ID: 9, ISBN: "222", Title: "Other", Published: date(t, "1950-06-01"), Genre: book.Mystery, Rating: 3},
	}
	authors := []book.Author{
		{ID: 4, FirstName: "ada", LastName: "lovelace", BirthDay: date(t, "1815-12-10")},
	}
	links := []book.Link{
		{AuthorID: 4, BookID: 7},
		{AuthorID: 4, BookID: 9},
	}

	if err := r.SaveAll(ctx, books, authors, links); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	gotBooks, gotAuthors, gotLinks, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(gotBooks) != 2 {
		t.Fatalf("expected 2 books, got %d", len(gotBooks))
	}
	// Persistent ids are regenerated positionally: 7 -> 1, 9 -> 2.
	if gotBooks[0].ID != 1 || gotBooks[1].ID != 2 {
		t.Errorf("expected regenerated ids 1 and 2, got %d and %d", gotBooks[0].ID, gotBooks[1].ID)
	}
	if gotBooks[0].Title != "Notes" || gotBooks[0].Genre != book.NonFiction || gotBooks[0].Rating != 5 {
		t.Errorf("unexpected first book: %+v", gotBooks[0])
	}
	if !gotBooks[0].Published.Equal(date(t, "1843-01-01")) {
		t.Errorf("expected published 1843-01-01, got %v", gotBooks[0].Published)
	}

	if len(gotAuthors) != 1 {
		t.Fatalf("expected 1 author, got %d", len(gotAuthors))
	}
	a := gotAuthors[0]
	if a.ID != 1 || a.FirstName != "ada" || a.LastName != "lovelace" {
		t.Errorf("unexpected author: %+v", a)
	}
	if !a.BirthDay.Equal(date(t, "1815-12-10")) {
		t.Errorf("expected birthday 1815-12-10, got %v", a.BirthDay)
	}

	// Both relation rows survive with translated ids.
	if len(gotLinks) != 2 {
		t.Fatalf("expected 2 relation rows, got %d", len(gotLinks))
	}
	for i, want := range []book.Link{{AuthorID: 1, BookID: 1}, {AuthorID: 1, BookID: 2}} {
		if gotLinks[i] != want {
			t.Errorf("relation %d: expected %+v, got %+v", i, want, gotLinks[i])
		}
	}
}

func TestSaveAllRewritesCompletely(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first := []book.Book{
		{ID: 2, ISBN: "111", Title: "Notes", Published: date(t, "2001-01-01"), Genre: book.Fiction, Rating: 3},
		{ID: 3, ISBN: "222", Title: "Other", Published: date(t, "2002-02-02"), Genre: book.Fiction, Rating: 3},
	}
	if err := r.SaveAll(ctx, first, nil, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	// A second flush with one book replaces everything, and the sequence
	// reset makes the surviving book get id 1 again, not 3.
	second := []book.Book{
		{ID: 3, ISBN: "222", Title: "Other", Published: date(t, "2002-02-02"), Genre: book.Fiction, Rating: 3},
	}
	if err := r.SaveAll(ctx, second, nil, nil); err != nil {
		t.Fatalf("second SaveAll failed: %v", err)
	}

	books, _, _, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book after rewrite, got %d", len(books))
	}
	if books[0].ID != 1 {
		t.Errorf("expected sequence reset to restart ids at 1, got %d", books[0].ID)
	}
}

func TestSaveAllEmptyState(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	seed := []book.Book{{ID: 2, ISBN: "111", Title: "Notes", Published: date(t, "2001-01-01"), Genre: book.Fiction, Rating: 3}}
	if err := r.SaveAll(ctx, seed, nil, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if err := r.SaveAll(ctx, nil, nil, nil); err != nil {
		t.Fatalf("empty SaveAll failed: %v", err)
	}

	books, authors, links, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(books) != 0 || len(authors) != 0 || len(links) != 0 {
		t.Errorf("expected empty state, got %d books, %d authors, %d links",
			len(books), len(authors), len(links))
	}
}

func TestSaveAllUnknownRelation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	books := []book.Book{{ID: 2, ISBN: "111", Title: "Notes", Published: date(t, "2001-01-01"), Genre: book.Fiction, Rating: 3}}
	links := []book.Link{{AuthorID: 42, BookID: 2}}

	err := r.SaveAll(ctx, books, nil, links)
	var storeErr *book.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError for dangling relation, got %v", err)
	}

	// The transaction rolled back, so the previous (empty) state survives.
	got, _, _, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected rollback to keep the store empty, got %d books", len(got))
	}
}

func TestLoadAllEmptyStore(t *testing.T) {
	r := newTestRepo(t)

	books, authors, links, err := r.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if books == nil || authors == nil || links == nil {
		t.Error("expected empty non-nil slices")
	}
	if len(books) != 0 || len(authors) != 0 || len(links) != 0 {
		t.Errorf("expected empty state, got %d books, %d authors, %d links",
			len(books), len(authors), len(links))
	}
}

func TestUnreachableStore(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "no", "such", "dir", "test.db?mode=rw"), "", "")

	var storeErr *book.StoreError
	if _, _, _, err := r.LoadAll(context.Background()); !errors.As(err, &storeErr) {
		t.Errorf("expected StoreError from LoadAll, got %v", err)
	}
	if err := r.SaveAll(context.Background(), nil, nil, nil); !errors.As(err, &storeErr) {
		t.Errorf("expected StoreError from SaveAll, got %v", err)
	}
	if err := r.Ping(); !errors.As(err, &storeErr) {
		t.Errorf("expected StoreError from Ping, got %v", err)
	}
}

func TestPing(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
