package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/models"
	"github.com/libreshelf/bookstore-be/internal/services"
)

// BookHandler handles HTTP requests for the catalog.
type BookHandler struct {
	books  services.BookServiceProvider
	events services.EventServiceProvider
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books services.BookServiceProvider, events services.EventServiceProvider) *BookHandler {
	return &BookHandler{books: books, events: events}
}

// CreateBookPayload defines the structure for book creation requests.
// Price is a pointer so an absent field is distinguishable from zero.
type CreateBookPayload struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Category      string   `json:"category"`
	Price         *float64 `json:"price"`
	Rating        *float64 `json:"rating"`
	PublishedDate string   `json:"publishedDate"`
}

// UpdateBookPayload defines the structure for partial updates; absent
// fields are left untouched.
type UpdateBookPayload struct {
	Title         *string  `json:"title"`
	Author        *string  `json:"author"`
	Category      *string  `json:"category"`
	Price         *float64 `json:"price"`
	Rating        *float64 `json:"rating"`
	PublishedDate *string  `json:"publishedDate"`
}

// parseDate accepts either a full timestamp or a bare date.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// Create handles the creation of a new book.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CreateBookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Title == "" || payload.Author == "" || payload.Category == "" || payload.Price == nil || payload.PublishedDate == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	publishedDate, err := parseDate(payload.PublishedDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid publishedDate")
		return
	}

	rating := 0.0
	if payload.Rating != nil {
		rating = *payload.Rating
	}

	book, err := h.books.CreateBook(payload.Title, payload.Author, payload.Category, *payload.Price, rating, publishedDate)
	if err != nil {
		if errors.Is(err, services.ErrInvalidBook) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to create book")
		respondError(w, http.StatusInternalServerError, "Server error while creating book")
		return
	}

	h.events.RecordEvent("book.created", "info", "Book created: "+book.Title, &book.ID)
	respondJSON(w, http.StatusCreated, book)
}

// GetAll handles the paginated, optionally sorted catalog listing.
func (h *BookHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}

	books, pagination, err := h.books.ListBooks(page, limit, q.Get("sortBy"), q.Get("order"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list books")
		respondError(w, http.StatusInternalServerError, "Server error while fetching books")
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"books":      books,
		"pagination": pagination,
	})
}

// Get handles retrieving a single book by its ID.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	book, err := h.books.GetBookByID(id)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			respondError(w, http.StatusNotFound, "Book not found")
			return
		}
		log.Error().Err(err).Str("book_id", id).Msg("Failed to get book")
		respondError(w, http.StatusInternalServerError, "Server error while fetching book")
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// Update handles a partial update of a book.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload UpdateBookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := services.BookUpdate{
		Title:    payload.Title,
		Author:   payload.Author,
		Category: payload.Category,
		Price:    payload.Price,
		Rating:   payload.Rating,
	}
	if payload.PublishedDate != nil {
		publishedDate, err := parseDate(*payload.PublishedDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid publishedDate")
			return
		}
		upd.PublishedDate = &publishedDate
	}

	book, err := h.books.UpdateBook(id, upd)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			respondError(w, http.StatusNotFound, "Book not found")
		case errors.Is(err, services.ErrInvalidBook):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("book_id", id).Msg("Failed to update book")
			respondError(w, http.StatusInternalServerError, "Server error while updating book")
		}
		return
	}

	h.events.RecordEvent("book.updated", "info", "Book updated: "+book.Title, &book.ID)
	respondJSON(w, http.StatusOK, book)
}

// Delete handles removing a book from the catalog.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.books.DeleteBook(id); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			respondError(w, http.StatusNotFound, "Book not found")
			return
		}
		log.Error().Err(err).Str("book_id", id).Msg("Failed to delete book")
		respondError(w, http.StatusInternalServerError, "Server error while deleting book")
		return
	}

	h.events.RecordEvent("book.deleted", "info", "Book deleted", &id)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

// Filter handles the exact-match/threshold filter listing.
func (h *BookHandler) Filter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var minRating *float64
	if raw := q.Get("minRating"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid minRating")
			return
		}
		minRating = &parsed
	}

	books, err := h.books.FilterBooks(q.Get("author"), q.Get("category"), minRating)
	if err != nil {
		log.Error().Err(err).Msg("Failed to filter books")
		respondError(w, http.StatusInternalServerError, "Server error while filtering books")
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	respondJSON(w, http.StatusOK, books)
}

// Search handles the case-insensitive title substring search.
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		respondError(w, http.StatusBadRequest, "Search term is required")
		return
	}

	books, err := h.books.SearchBooks(title)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search books")
		respondError(w, http.StatusInternalServerError, "Server error while searching books")
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	respondJSON(w, http.StatusOK, books)
}
