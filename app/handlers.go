package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/avholm/bookdb/book"
	"github.com/avholm/bookdb/catalog"
	"github.com/avholm/bookdb/logger"
	"github.com/avholm/bookdb/middleware"
	"github.com/avholm/bookdb/repo"
	"github.com/avholm/bookdb/validator"
)

// shell mediates between HTTP handlers and the single-threaded catalogue
// model. The mutex serializes every model call and doubles as the action
// gate while an update flush is in progress, which also establishes the
// happens-before edge the model's contract requires.
type shell struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	storage *repo.Repo
}

func newShell(cat *catalog.Catalog, storage *repo.Repo) *shell {
	return &shell{catalog: cat, storage: storage}
}

func (s *shell) flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Flush(ctx)
}

func (s *shell) router() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/books", s.booksHandler())
	mux.Handle("/api/books/", s.rateHandler())
	mux.Handle("/api/authors", s.authorsHandler())
	mux.Handle("/api/links", s.linkHandler())
	mux.Handle("/api/search", s.searchHandler())
	mux.Handle("/api/genres", genresHandler())
	mux.Handle("/api/update", s.updateHandler())
	mux.HandleFunc("/health", s.healthCheckHandler())

	chain := middleware.Chain(
		middleware.Recovery,
		middleware.Logger,
		middleware.RequestID,
	)

	return chain(mux)
}

// respondWithError logs an error and sends an HTTP error response as JSON
func respondWithError(w http.ResponseWriter, message string, err error, statusCode int) {
	logger.Error(message, "error", err, "status", statusCode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

// respondWithValidationError sends a validation error response as JSON
func respondWithValidationError(w http.ResponseWriter, message string) {
	logger.Warn("Validation error", "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

// respondWithModelError maps a catalogue error onto an HTTP status: invalid
// input is the caller's fault, a store failure means the database is down.
func respondWithModelError(w http.ResponseWriter, message string, err error) {
	var storeErr *book.StoreError
	switch {
	case errors.Is(err, book.ErrInvalidInput):
		respondWithError(w, err.Error(), err, http.StatusBadRequest)
	case errors.As(err, &storeErr):
		respondWithError(w, message, err, http.StatusBadGateway)
	default:
		respondWithError(w, message, err, http.StatusInternalServerError)
	}
}

func respondWithJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// Display formatting. Names are kept lower-cased in the model; the UI shows
// them title-cased.
var displayCaser = cases.Title(language.Und)

type bookResponse struct {
	ID        int64    `json:"book_id"`
	ISBN      string   `json:"isbn"`
	Title     string   `json:"title"`
	Published string   `json:"published"`
	Genre     string   `json:"genre"`
	Rating    int      `json:"rating"`
	Authors   []string `json:"authors"`
}

type authorResponse struct {
	ID       int64    `json:"author_id"`
	Name     string   `json:"name"`
	BirthDay string   `json:"birth_day"`
	Books    []string `json:"books"`
}

func displayName(a book.Author) string {
	return displayCaser.String(a.FirstName + " " + a.LastName)
}

func toBookResponse(b book.Book) bookResponse {
	resp := bookResponse{
		ID:        b.ID,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Published: b.Published.Format(book.DateLayout),
		Genre:     b.Genre.String(),
		Rating:    b.Rating,
		Authors:   make([]string, 0, len(b.Authors)),
	}
	for _, a := range b.Authors {
		resp.Authors = append(resp.Authors, displayName(a))
	}
	return resp
}

func toBookResponses(books []book.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out
}

func toAuthorResponse(a book.Author) authorResponse {
	resp := authorResponse{
		ID:       a.ID,
		Name:     displayName(a),
		BirthDay: a.BirthDay.Format(book.DateLayout),
		Books:    make([]string, 0, len(a.Books)),
	}
	for _, b := range a.Books {
		resp.Books = append(resp.Books, b.Title)
	}
	return resp
}

// booksHandler lists books on GET and creates one on POST.
func (s *shell) booksHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.mu.Lock()
			books := s.catalog.Books()
			s.mu.Unlock()
			respondWithJSON(w, toBookResponses(books))
		case http.MethodPost:
			var req struct {
				Title  string `json:"title"`
				ISBN   string `json:"isbn"`
				Genre  string `json:"genre"`
				Rating string `json:"rating"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondWithValidationError(w, "invalid JSON body")
				return
			}
			if validator.ValidateNonEmpty(req.Title) != nil || validator.ValidateNonEmpty(req.ISBN) != nil {
				respondWithValidationError(w, "title and isbn are required")
				return
			}

			s.mu.Lock()
			created, err := s.catalog.CreateBook(req.Title, req.ISBN, req.Genre, req.Rating)
			s.mu.Unlock()
			if err != nil {
				respondWithModelError(w, "Failed to create book", err)
				return
			}
			respondWithJSON(w, toBookResponse(created))
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
}

// authorsHandler lists authors on GET and creates one on POST.
func (s *shell) authorsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.mu.Lock()
			authors := s.catalog.Authors()
			s.mu.Unlock()

			out := make([]authorResponse, 0, len(authors))
			for _, a := range authors {
				out = append(out, toAuthorResponse(a))
			}
			respondWithJSON(w, out)
		case http.MethodPost:
			var req struct {
				FirstName string `json:"first_name"`
				LastName  string `json:"last_name"`
				BirthDay  string `json:"birth_day"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondWithValidationError(w, "invalid JSON body")
				return
			}
			if validator.ValidateNonEmpty(req.FirstName) != nil || validator.ValidateNonEmpty(req.LastName) != nil {
				respondWithValidationError(w, "first_name and last_name are required")
				return
			}
			birthDay, err := validator.ParseDate(req.BirthDay)
			if err != nil {
				respondWithValidationError(w, err.Error())
				return
			}

			s.mu.Lock()
			created := s.catalog.CreateAuthor(req.FirstName, req.LastName, birthDay)
			s.mu.Unlock()
			respondWithJSON(w, toAuthorResponse(created))
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
}

// linkHandler adds an authorship relation between an existing book and an
// existing author.
func (s *shell) linkHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			BookID   int64 `json:"book_id"`
			AuthorID int64 `json:"author_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithValidationError(w, "invalid JSON body")
			return
		}
		if validator.ValidateID(req.BookID) != nil || validator.ValidateID(req.AuthorID) != nil {
			respondWithValidationError(w, "book_id and author_id must be positive")
			return
		}

		s.mu.Lock()
		added := s.catalog.Link(req.BookID, req.AuthorID)
		s.mu.Unlock()
		respondWithJSON(w, map[string]bool{"added": added})
	})
}

// rateHandler sets the rating of a single book: POST /api/books/{id}/rating
func (s *shell) rateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/rating") {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/api/books/")
		path = strings.TrimSuffix(path, "/rating")
		id, err := strconv.ParseInt(path, 10, 64)
		if err != nil {
			respondWithValidationError(w, "invalid book ID")
			return
		}

		var req struct {
			Rating string `json:"rating"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithValidationError(w, "invalid JSON body")
			return
		}
		rating, err := book.ParseRating(req.Rating)
		if err != nil {
			respondWithModelError(w, "Failed to rate book", err)
			return
		}

		s.mu.Lock()
		err = s.catalog.Rate(id, rating)
		s.mu.Unlock()
		if err != nil {
			respondWithModelError(w, "Failed to rate book", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// searchHandler dispatches the five search modes. Free-text modes require
// at least two characters; shorter input never reaches the model.
func (s *shell) searchHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			respondWithValidationError(w, "missing 'q' query parameter")
			return
		}

		mode := r.URL.Query().Get("mode")
		if mode == "" {
			mode = "title"
		}

		var (
			books []book.Book
			err   error
		)
		switch mode {
		case "title", "isbn", "author":
			if err := validator.ValidateSearchTerm(q); err != nil {
				respondWithValidationError(w, err.Error())
				return
			}
			s.mu.Lock()
			switch mode {
			case "title":
				books = s.catalog.SearchByTitle(q)
			case "isbn":
				books = s.catalog.SearchByISBN(q)
			case "author":
				books = s.catalog.SearchByAuthor(q)
			}
			s.mu.Unlock()
		case "rating":
			s.mu.Lock()
			books, err = s.catalog.SearchByRating(q)
			s.mu.Unlock()
		case "genre":
			s.mu.Lock()
			books, err = s.catalog.SearchByGenre(q)
			s.mu.Unlock()
		default:
			respondWithValidationError(w, "mode must be one of 'title', 'isbn', 'author', 'rating', 'genre'")
			return
		}
		if err != nil {
			respondWithModelError(w, "Failed to search books", err)
			return
		}
		respondWithJSON(w, toBookResponses(books))
	})
}

func genresHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, book.Genres())
	})
}

// updateHandler flushes the catalogue to the store. The request goroutine
// plays the role of the background worker: it holds the gate for the whole
// flush, so every other catalogue action is disabled until it completes,
// and returns the freshly re-queried book list on success.
func (s *shell) updateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		err := s.catalog.Flush(r.Context())
		var books []book.Book
		if err == nil {
			books = s.catalog.Books()
		}
		s.mu.Unlock()

		if err != nil {
			respondWithModelError(w, "Failed to update database", err)
			return
		}
		respondWithJSON(w, toBookResponses(books))
	})
}

func (s *shell) healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.storage.Ping(); err != nil {
			respondWithError(w, "service unavailable", err, http.StatusServiceUnavailable)
			return
		}
		respondWithJSON(w, map[string]string{"status": "healthy"})
	}
}
