package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/libreshelf/bookstore-be/internal/models"
	"github.com/libreshelf/bookstore-be/internal/query"
)

// ErrBookNotFound is returned when no book matches the given id.
var ErrBookNotFound = errors.New("book not found")

// ErrInvalidBook is returned when a book's fields fail validation.
var ErrInvalidBook = errors.New("invalid book")

// BookUpdate carries the fields of a partial update; nil means "leave as is".
type BookUpdate struct {
	Title         *string
	Author        *string
	Category      *string
	Price         *float64
	Rating        *float64
	PublishedDate *time.Time
}

// BookServiceProvider defines the interface for book services.
type BookServiceProvider interface {
	CreateBook(title, author, category string, price, rating float64, publishedDate time.Time) (models.Book, error)
	GetBookByID(id string) (models.Book, error)
	UpdateBook(id string, upd BookUpdate) (models.Book, error)
	DeleteBook(id string) error
	ListBooks(page, limit int, sortBy, order string) ([]models.Book, models.Pagination, error)
	FilterBooks(author, category string, minRating *float64) ([]models.Book, error)
	SearchBooks(title string) ([]models.Book, error)
	CountBooks() (int, error)
}

// BookService provides the catalog's CRUD operations and its three read
// modes: paginated listing, conjunctive filtering, and title search. The
// modes are independent; none of them compose with the others.
type BookService struct {
	db *sql.DB
}

// NewBookService creates a new BookService.
func NewBookService(db *sql.DB) *BookService {
	return &BookService{db: db}
}

const bookColumns = "id, title, author, category, price, rating, published_date, created_at"

func scanBook(row interface{ Scan(...interface{}) error }) (models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.Rating, &b.PublishedDate, &b.CreatedAt)
	return b, err
}

// CreateBook inserts a new catalog record.
func (s *BookService) CreateBook(title, author, category string, price, rating float64, publishedDate time.Time) (models.Book, error) {
	if price < 0 {
		return models.Book{}, fmt.Errorf("%w: price must be non-negative", ErrInvalidBook)
	}
	if rating < 0 || rating > 5 {
		return models.Book{}, fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidBook)
	}

	book := models.Book{
		ID:            uuid.New().String(),
		Title:         title,
		Author:        author,
		Category:      category,
		Price:         price,
		Rating:        rating,
		PublishedDate: publishedDate,
		CreatedAt:     time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO books(" + bookColumns + ") VALUES(?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Book{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(book.ID, book.Title, book.Author, book.Category, book.Price, book.Rating, book.PublishedDate, book.CreatedAt)
	if err != nil {
		return models.Book{}, err
	}
	return book, nil
}

// GetBookByID retrieves a single book.
func (s *BookService) GetBookByID(id string) (models.Book, error) {
	book, err := scanBook(s.db.QueryRow("SELECT "+bookColumns+" FROM books WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Book{}, ErrBookNotFound
		}
		return models.Book{}, err
	}
	return book, nil
}

// UpdateBook applies a partial update and returns the new record.
func (s *BookService) UpdateBook(id string, upd BookUpdate) (models.Book, error) {
	book, err := s.GetBookByID(id)
	if err != nil {
		return models.Book{}, err
	}

	if upd.Title != nil {
		book.Title = *upd.Title
	}
	if upd.Author != nil {
		book.Author = *upd.Author
	}
	if upd.Category != nil {
		book.Category = *upd.Category
	}
	if upd.Price != nil {
		book.Price = *upd.Price
	}
	if upd.Rating != nil {
		book.Rating = *upd.Rating
	}
	if upd.PublishedDate != nil {
		book.PublishedDate = *upd.PublishedDate
	}

	if book.Price < 0 {
		return models.Book{}, fmt.Errorf("%w: price must be non-negative", ErrInvalidBook)
	}
	if book.Rating < 0 || book.Rating > 5 {
		return models.Book{}, fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidBook)
	}

	_, err = s.db.Exec(
		"UPDATE books SET title = ?, author = ?, category = ?, price = ?, rating = ?, published_date = ? WHERE id = ?",
		book.Title, book.Author, book.Category, book.Price, book.Rating, book.PublishedDate, id,
	)
	if err != nil {
		return models.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book, reporting ErrBookNotFound if nothing matched.
func (s *BookService) DeleteBook(id string) error {
	res, err := s.db.Exec("DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// ListBooks returns one page of the catalog plus pagination metadata.
// sortBy is honored only for "price" and "rating"; anything else falls
// back to the store's natural order.
func (s *BookService) ListBooks(page, limit int, sortBy, order string) ([]models.Book, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	orderClause := ""
	if sortBy == "price" || sortBy == "rating" {
		dir := "ASC"
		if order == "desc" {
			dir = "DESC"
		}
		orderClause = " ORDER BY " + sortBy + " " + dir
	}

	skip := (page - 1) * limit
	rows, err := s.db.Query("SELECT "+bookColumns+" FROM books"+orderClause+" LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	total, err := s.CountBooks()
	if err != nil {
		return nil, models.Pagination{}, err
	}

	return books, models.Pagination{
		TotalBooks:  total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// FilterBooks returns every book matching the given predicates,
// unpaginated. All predicates are optional and conjunctive.
func (s *BookService) FilterBooks(author, category string, minRating *float64) ([]models.Book, error) {
	var f query.Filter
	if author != "" {
		f.And(query.Eq("author", author))
	}
	if category != "" {
		f.And(query.Eq("category", category))
	}
	if minRating != nil {
		f.And(query.GteFloat("rating", *minRating))
	}

	where, args := f.Where()
	rows, err := s.db.Query("SELECT "+bookColumns+" FROM books"+where, args...)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// SearchBooks returns every book whose title contains the given term,
// case-insensitively, unpaginated.
func (s *BookService) SearchBooks(title string) ([]models.Book, error) {
	var f query.Filter
	f.And(query.ContainsFold("title", title))

	where, args := f.Where()
	rows, err := s.db.Query("SELECT "+bookColumns+" FROM books"+where, args...)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// CountBooks reports the catalog size.
func (s *BookService) CountBooks() (int, error) {
	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM books").Scan(&total)
	return total, err
}

func collectBooks(rows *sql.Rows) ([]models.Book, error) {
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}
