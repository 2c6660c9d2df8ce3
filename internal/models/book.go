package models

import "time"

// Book represents a single title in the catalog. Books carry no ownership
// link to a user; every authenticated caller sees the same catalog.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	Rating        float64   `json:"rating"`
	PublishedDate time.Time `json:"publishedDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Pagination describes the page window returned by a book listing.
type Pagination struct {
	TotalBooks  int `json:"totalBooks"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}
