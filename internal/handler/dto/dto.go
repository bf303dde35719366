// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/xscan/xscan/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Pagination provides page-based pagination info.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListResponse is the envelope of every paginated list.
type ListResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination"`
}

// ToListResponse converts a model page, mapping each item with fn.
func ToListResponse[T, R any](page *model.Page[T], fn func(*T) R) *ListResponse[R] {
	data := make([]R, 0, len(page.Items))
	for i := range page.Items {
		data = append(data, fn(&page.Items[i]))
	}
	return &ListResponse[R]{
		Data: data,
		Pagination: &Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages(),
		},
	}
}

// Identity returns the item unchanged, for pages that need no mapping.
func Identity[T any](v *T) *T { return v }

// DataResponse wraps a non-paginated collection.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}
