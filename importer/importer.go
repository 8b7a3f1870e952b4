// Package importer populates the catalogue from a directory of fb2 books.
package importer

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/avholm/bookdb/book"
	"github.com/avholm/bookdb/logger"
)

// Cataloger is the slice of the catalogue the importer needs. Implemented
// by catalog.Catalog.
type Cataloger interface {
	CreateBook(title, isbn, genre, rating string) (book.Book, error)
	CreateAuthor(first, last string, birthDay time.Time) book.Author
	Link(bookID, authorID int64) bool
}

// Stats summarizes an import run.
type Stats struct {
	Books   int
	Authors int
	Skipped int
}

// entry is the metadata lifted from one fb2 file.
type entry struct {
	Title   string
	ISBN    string
	Genres  []string
	Authors []entryAuthor
}

type entryAuthor struct {
	First string
	Last  string
}

// defaultRating is assigned to imported books; nobody has read them yet.
const defaultRating = "3"

// ScanLibrary walks basedir for .fb2 files (plain or zipped), parses their
// metadata and adds the books and authors to the catalogue. The caller is
// expected to flush afterwards.
func ScanLibrary(ctx context.Context, basedir string, cat Cataloger) (Stats, error) {
	var files []string

	exts := map[string]bool{
		".fb2": true,
		".zip": true,
	}

	err := filepath.WalkDir(basedir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && exts[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	entries := make(chan entry)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(entries)
		for _, file := range files {
			if err := readFile(ctx, file, entries); err != nil {
				return err
			}
		}
		return nil
	})

	var stats Stats
	seen := make(map[entryAuthor]int64)

	g.Go(func() error {
		for e := range entries {
			if e.Title == "" {
				stats.Skipped++
				continue
			}

			created, err := cat.CreateBook(e.Title, e.ISBN, mapGenre(e.Genres), defaultRating)
			if err != nil {
				logger.Warn("Skipping book", "title", e.Title, "error", err)
				stats.Skipped++
				continue
			}
			stats.Books++

			for _, a := range e.Authors {
				if a.Last == "" {
					continue
				}
				key := entryAuthor{strings.ToLower(a.First), strings.ToLower(a.Last)}
				id, ok := seen[key]
				if !ok {
					author := cat.CreateAuthor(a.First, a.Last, time.Time{})
					id = author.ID
					seen[key] = id
					stats.Authors++
				}
				cat.Link(created.ID, id)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// readFile pushes the metadata of every fb2 document found in file onto
// entries. A zip may hold several books.
func readFile(ctx context.Context, file string, entries chan<- entry) error {
	send := func(e entry) error {
		select {
		case entries <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if filepath.Ext(file) == ".zip" {
		arch, err := zip.OpenReader(file)
		if err != nil {
			logger.Warn("Failed to open archive", "file", file, "error", err)
			return nil
		}
		defer arch.Close()

		for _, archiveEntry := range arch.File {
			if !strings.HasSuffix(archiveEntry.Name, ".fb2") {
				continue
			}
			content, err := archiveEntry.Open()
			if err != nil {
				logger.Warn("Failed to read archive entry", "entry", archiveEntry.Name, "error", err)
				continue
			}
			e, err := parseMeta(content)
			content.Close()
			if err != nil {
				logger.Warn("Failed to parse book", "entry", archiveEntry.Name, "error", err)
				e = entry{}
			}
			if e.ISBN == "" {
				e.ISBN = fallbackISBN(archiveEntry.Name)
			}
			if err := send(e); err != nil {
				return err
			}
		}
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	e, err := parseMeta(f)
	if err != nil {
		logger.Warn("Failed to parse book", "file", file, "error", err)
		e = entry{}
	}
	if e.ISBN == "" {
		e.ISBN = fallbackISBN(file)
	}
	return send(e)
}

// titleInfo mirrors the fb2 title-info block.
type titleInfo struct {
	Genres  []string `xml:"genre"`
	Authors []struct {
		FirstName string `xml:"first-name"`
		LastName  string `xml:"last-name"`
	} `xml:"author"`
	Title string `xml:"book-title"`
}

type publishInfo struct {
	ISBN string `xml:"isbn"`
}

// parseMeta walks the document token by token and decodes only the
// title-info and publish-info blocks, so the body is never read into memory.
func parseMeta(r io.Reader) (entry, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		ti titleInfo
		pi publishInfo
	)

	for {
		t, err := decoder.Token()
		if t == nil {
			break
		}
		if err != nil {
			return entry{}, err
		}

		se, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "title-info":
			if err := decoder.DecodeElement(&ti, &se); err != nil {
				return entry{}, err
			}
		case "publish-info":
			if err := decoder.DecodeElement(&pi, &se); err != nil {
				return entry{}, err
			}
		case "body":
			// metadata lives before the body
			goto done
		}
	}
done:

	e := entry{
		Title:  strings.TrimSpace(ti.Title),
		ISBN:   strings.TrimSpace(pi.ISBN),
		Genres: ti.Genres,
	}
	for _, a := range ti.Authors {
		e.Authors = append(e.Authors, entryAuthor{
			First: strings.TrimSpace(a.FirstName),
			Last:  strings.TrimSpace(a.LastName),
		})
	}
	return e, nil
}

// fallbackISBN derives a stable stand-in identifier from the file name for
// books whose publish-info carries no ISBN. The catalogue requires a
// non-empty, unique-ish ISBN per book.
func fallbackISBN(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "FB2-" + base
}

// mapGenre picks the catalogue genre for a list of fb2 genre codes. The
// first code that maps to something other than plain fiction wins.
func mapGenre(codes []string) string {
	for _, code := range codes {
		g := genreFor(strings.TrimSpace(strings.ToLower(code)))
		if g != book.Fiction {
			return g.String()
		}
	}
	return book.Fiction.String()
}

func genreFor(code string) book.Genre {
	switch {
	case strings.HasPrefix(code, "sf_") || code == "sf":
		return book.ScienceFiction
	case strings.HasPrefix(code, "det"):
		return book.Mystery
	case strings.HasPrefix(code, "love"):
		return book.Romance
	case strings.HasPrefix(code, "thriller"):
		return book.Thriller
	case strings.HasPrefix(code, "humor"):
		return book.Comedy
	case code == "fantasy" || strings.HasPrefix(code, "fantasy_"):
		return book.Fantasy
	case strings.HasPrefix(code, "nonf_") || strings.HasPrefix(code, "sci_") || code == "science":
		return book.NonFiction
	default:
		return book.Fiction
	}
}
