package shared

import "math"

// DefaultPerPage bounds listing sizes when the caller does not choose one.
const DefaultPerPage = 20

// MaxPerPage caps how many rows a single listing page may return.
const MaxPerPage = 100

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata from a normalised page request
// and the total row count.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = NormalisePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// NormalisePage clamps page and perPage into their allowed ranges.
func NormalisePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Offset converts a normalised page request into a row offset.
func Offset(page, perPage int) int {
	page, perPage = NormalisePage(page, perPage)
	return (page - 1) * perPage
}
