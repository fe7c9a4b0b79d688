// Package catalog pages through the publicly available properties.
package catalog

import (
	"context"
	"math"

	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
)

// PageSize is the number of properties per catalog page.
const PageSize = 12

// maxIndex keeps index*PageSize within int.
const maxIndex = math.MaxInt / PageSize

// Source lists available properties.
type Source interface {
	ListAvailableProperties(ctx context.Context, offset, limit int) ([]domain.Property, error)
}

// Page is one window of the catalog.
type Page struct {
	Items       []domain.Property `json:"items"`
	Index       int               `json:"page"`
	HasPrevious bool              `json:"has_previous"`
	// HasNext is true whenever the page is full, so an exactly full last page
	// still offers a next page that turns out empty.
	HasNext bool `json:"has_next"`
}

// Reader serves catalog pages. Every identity sees every available property.
type Reader struct {
	source Source
}

// NewReader creates a reader over source.
func NewReader(source Source) *Reader {
	return &Reader{source: source}
}

// Page returns page index (zero based), newest listings first.
func (r *Reader) Page(ctx context.Context, index int) (Page, error) {
	if index < 0 {
		return Page{}, apperrors.Validation(apperrors.FieldError{Field: "page", Message: "must be at least 0"})
	}
	if index > maxIndex {
		return Page{}, apperrors.Validation(apperrors.FieldError{Field: "page", Message: "is too large"})
	}

	items, err := r.source.ListAvailableProperties(ctx, index*PageSize, PageSize)
	if err != nil {
		return Page{}, apperrors.Persistence("Failed to load properties.", err)
	}
	if items == nil {
		items = []domain.Property{}
	}

	return Page{
		Items:       items,
		Index:       index,
		HasPrevious: index > 0,
		HasNext:     len(items) == PageSize,
	}, nil
}
