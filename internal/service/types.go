package service

import (
	"errors"

	"github.com/vanshika/filmgraph/internal/domain"
)

var (
	// ErrValidation wraps every problem with caller-supplied input.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownItem indicates a title that is not in the catalogue.
	ErrUnknownItem = errors.New("unknown item")
)

// PaginationMeta captures pagination metadata returned to API clients.
type PaginationMeta struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// ItemsPage is a page of the catalogue.
type ItemsPage struct {
	Items      []domain.ItemSummary
	Pagination PaginationMeta
}

// RecommendationsPage is a page of the aggregate ranking.
type RecommendationsPage struct {
	Items      []domain.Recommendation
	Pagination PaginationMeta
}

// ListItemsParams filters the catalogue.
type ListItemsParams struct {
	Page     int
	PageSize int
	// Search is a case-insensitive title prefix.
	Search string
}

// RecommendParams selects the seed items and the page of the ranking.
type RecommendParams struct {
	Items    []string
	Page     int
	PageSize int
}

// ReviewerInput is a new reviewer and their scores out of ten, keyed by title.
type ReviewerInput struct {
	Name    string
	Ratings map[string]int
}

// SubmitResult reports what a reviewer submission changed.
type SubmitResult struct {
	Reviewer string
	// Applied is the number of positive reviews added to the graph.
	Applied int
	// Stored is the number of ratings appended to the dataset.
	Stored int
}
