package repo

import (
	"github.com/avholm/bookdb/book"
)

// Column naming is part of the external contract: book.ISBN is upper-case,
// everything else lower-camelCase. DATE columns hold ISO-8601 dates and
// genre holds the textual enumerant.
const schema = `
           CREATE TABLE IF NOT EXISTS "book" (
               id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
               ISBN TEXT NOT NULL,
               title TEXT NOT NULL,
               published DATE,
               genre TEXT,
               rating INTEGER
           );
           CREATE INDEX IF NOT EXISTS [I_title] ON "book" ([title]);
           CREATE INDEX IF NOT EXISTS [I_ISBN] ON "book" ([ISBN]);

           CREATE TABLE IF NOT EXISTS "author" (
               id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
               firstName TEXT NOT NULL,
               lastName TEXT NOT NULL,
               birthDay DATE
           );
           CREATE INDEX IF NOT EXISTS [I_lastName] ON "author" ([lastName]);

           CREATE TABLE IF NOT EXISTS "author_book" (
               author_id INTEGER NOT NULL,
               book_id INTEGER NOT NULL,
               FOREIGN KEY (author_id) REFERENCES author(id),
               FOREIGN KEY (book_id) REFERENCES book(id)
           );
           CREATE INDEX IF NOT EXISTS [I_author_id] ON "author_book" ([author_id]);
           CREATE INDEX IF NOT EXISTS [I_book_id] ON "author_book" ([book_id]);
`

// EnsureSchema creates the three tables and their indexes if they do not
// exist yet.
func (r *Repo) EnsureSchema() error {
	db, err := r.open()
	if err != nil {
		return &book.StoreError{Op: "init schema", Err: err}
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return &book.StoreError{Op: "init schema", Err: err}
	}
	return nil
}
