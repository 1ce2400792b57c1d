// Package mercari provides a Mercari search API client abstracted behind an
// interface for testability.
package mercari

import (
	"context"

	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

// Sort order constants accepted by the search endpoint.
const (
	SortCreatedTime = "SORT_CREATED_TIME"
	SortUpdatedTime = "SORT_UPDATED_TIME"

	OrderDesc = "ORDER_DESC"
)

// SearchRequest defines the parameters for a Mercari search.
type SearchRequest struct {
	Keyword  string
	PageSize int
	Sort     string // defaults to SortUpdatedTime
	Order    string // defaults to OrderDesc
}

// SearchClient defines the interface for querying the Mercari search API.
// Results are returned newest first according to the requested sort.
type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) ([]domain.Item, error)
}
