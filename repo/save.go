package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avholm/bookdb/book"
)

// SaveAll replaces the persisted state with the given one: wipe and
// rewrite, inside a single connection and a single transaction. The store
// assigns fresh ids 1..N in insertion order, so authorship rows are written
// with post-flush ids translated from the in-memory ids by position.
// Failures roll back and are wrapped as a *book.StoreError, leaving the
// previous persistent state intact.
func (r *Repo) SaveAll(ctx context.Context, books []book.Book, authors []book.Author, links []book.Link) error {
	db, err := r.open()
	if err != nil {
		return &book.StoreError{Op: "flush", Err: err}
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &book.StoreError{Op: "flush", Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if err := r.rewrite(ctx, tx, books, authors, links); err != nil {
		return &book.StoreError{Op: "flush", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &book.StoreError{Op: "flush", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (r *Repo) rewrite(ctx context.Context, tx *sql.Tx, books []book.Book, authors []book.Author, links []book.Link) error {
	// Relations first, then the entity tables. Each entity table gets its
	// auto-increment sequence reset so the rewrite starts at id 1 again.
	if _, err := tx.ExecContext(ctx, `DELETE FROM author_book`); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM author`); err != nil {
		return fmt.Errorf("clear authors: %w", err)
	}
	if err := resetSequences(ctx, tx, "book", "author"); err != nil {
		return err
	}

	bookIDs, err := insertBooks(ctx, tx, books)
	if err != nil {
		return err
	}
	authorIDs, err := insertAuthors(ctx, tx, authors)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO author_book (author_id, book_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare relation insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range links {
		authorID, ok := authorIDs[l.AuthorID]
		if !ok {
			return fmt.Errorf("relation references unknown author %d", l.AuthorID)
		}
		bookID, ok := bookIDs[l.BookID]
		if !ok {
			return fmt.Errorf("relation references unknown book %d", l.BookID)
		}
		if _, err := stmt.ExecContext(ctx, authorID, bookID); err != nil {
			return fmt.Errorf("insert relation: %w", err)
		}
	}
	return nil
}

// resetSequences is the SQLite equivalent of ALTER TABLE … AUTO_INCREMENT = 1.
// The sqlite_sequence table only exists once an AUTOINCREMENT insert has
// happened, so a fresh database has nothing to reset.
func resetSequences(ctx context.Context, tx *sql.Tx, tables ...string) error {
	var name string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect sequences: %w", err)
	}

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = ?`, table); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

// insertBooks writes the books in their in-memory order and returns the
// mapping from in-memory id to the newly assigned persistent id. Insertion
// order matching the auto-increment sequence is what makes the positional
// translation valid.
func insertBooks(ctx context.Context, tx *sql.Tx, books []book.Book) (map[int64]int64, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO book (ISBN, title, published, genre, rating) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare book insert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[int64]int64, len(books))
	for _, b := range books {
		res, err := stmt.ExecContext(ctx, b.ISBN, b.Title, formatDate(b.Published), b.Genre.String(), b.Rating)
		if err != nil {
			return nil, fmt.Errorf("insert book %q: %w", b.ISBN, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("book id for %q: %w", b.ISBN, err)
		}
		ids[b.ID] = id
	}
	return ids, nil
}

func insertAuthors(ctx context.Context, tx *sql.Tx, authors []book.Author) (map[int64]int64, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO author (firstName, lastName, birthDay) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare author insert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[int64]int64, len(authors))
	for _, a := range authors {
		res, err := stmt.ExecContext(ctx, a.FirstName, a.LastName, formatDate(a.BirthDay))
		if err != nil {
			return nil, fmt.Errorf("insert author %s %s: %w", a.FirstName, a.LastName, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("author id for %s %s: %w", a.FirstName, a.LastName, err)
		}
		ids[a.ID] = id
	}
	return ids, nil
}
