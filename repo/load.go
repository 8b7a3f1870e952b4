package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avholm/bookdb/book"
)

// LoadAll reads the whole persisted state: three independent reads, each on
// a fresh connection. The book and author tables are independent of each
// other and are read concurrently; the relation table is walked afterwards.
// Any failure is wrapped as a *book.StoreError.
func (r *Repo) LoadAll(ctx context.Context) ([]book.Book, []book.Author, []book.Link, error) {
	var (
		books   []book.Book
		authors []book.Author
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		books, err = r.loadBooks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = r.loadAuthors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, &book.StoreError{Op: "load", Err: err}
	}

	links, err := r.loadLinks(ctx)
	if err != nil {
		return nil, nil, nil, &book.StoreError{Op: "load", Err: err}
	}
	return books, authors, links, nil
}

func (r *Repo) loadBooks(ctx context.Context) ([]book.Book, error) {
	db, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, ISBN, title, published, genre, rating FROM book`)
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	defer rows.Close()

	books := make([]book.Book, 0)
	for rows.Next() {
		var (
			b     book.Book
			genre string
		)
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Published, &genre, &b.Rating); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Genre, err = book.ParseGenre(genre)
		if err != nil {
			return nil, fmt.Errorf("map book %d: %w", b.ID, err)
		}
		b.Published = b.Published.UTC()
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (r *Repo) loadAuthors(ctx context.Context) ([]book.Author, error) {
	db, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("fetch authors: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, firstName, lastName, birthDay FROM author`)
	if err != nil {
		return nil, fmt.Errorf("fetch authors: %w", err)
	}
	defer rows.Close()

	authors := make([]book.Author, 0)
	for rows.Next() {
		var a book.Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.BirthDay); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		a.FirstName = strings.ToLower(a.FirstName)
		a.LastName = strings.ToLower(a.LastName)
		a.BirthDay = a.BirthDay.UTC()
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func (r *Repo) loadLinks(ctx context.Context) ([]book.Link, error) {
	db, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("fetch relations: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT author_id, book_id FROM author_book`)
	if err != nil {
		return nil, fmt.Errorf("fetch relations: %w", err)
	}
	defer rows.Close()

	links := make([]book.Link, 0)
	for rows.Next() {
		var l book.Link
		if err := rows.Scan(&l.AuthorID, &l.BookID); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return links, nil
}

// formatDate renders a calendar date the way the DATE columns store it.
func formatDate(t time.Time) string {
	return t.Format(book.DateLayout)
}
