// Package repo is the persistence adapter between the in-memory catalogue
// and the three relational tables book, author and author_book. It is
// purely procedural: load everything, or wipe and rewrite everything.
package repo

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avholm/bookdb/book"
)

// Repo talks to the relational store. It holds no live connection: each
// load and each flush opens its own scoped connection and releases it on
// every exit path, so nothing is held across user idle time.
type Repo struct {
	dsn string
}

// New builds an adapter from the connection URL, user name and password
// supplied at process start. Credentials, when present, are folded into
// the driver DSN (the sqlite3 driver authenticates via _auth_user and
// _auth_pass when built with user authentication).
func New(rawURL, user, password string) *Repo {
	return &Repo{dsn: buildDSN(rawURL, user, password)}
}

func buildDSN(rawURL, user, password string) string {
	dsn := rawURL
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	params := url.Values{}
	if !strings.Contains(dsn, "?") {
		params.Set("mode", "rwc")
	}
	if user != "" {
		params.Set("_auth", "")
		params.Set("_auth_user", user)
		params.Set("_auth_pass", password)
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

// open returns a fresh connection for a single persistence phase. Callers
// must close it.
func (r *Repo) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", r.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Ping verifies the store is reachable.
func (r *Repo) Ping() error {
	db, err := r.open()
	if err != nil {
		return &book.StoreError{Op: "ping", Err: err}
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return &book.StoreError{Op: "ping", Err: err}
	}
	return nil
}
