// internal/workers/dream/list-products/models.go
package listproducts

import "dreamforge-workers/internal/models"

type Input struct {
	UserID    string `json:"userId"`
	Owner     string `json:"owner"`
	Limit     int    `json:"limit"`
	PageToken string `json:"pageToken"`
	Status    string `json:"status"`
	// RequireMedia defaults to true when absent.
	RequireMedia *bool `json:"requireMedia"`
}

type AppliedFilters struct {
	Owner  string  `json:"owner"`
	Status *string `json:"status"`
	Limit  int     `json:"limit"`
}

type Output struct {
	Items          []models.ProductView `json:"items"`
	Count          int                  `json:"count"`
	NextPageToken  *string              `json:"nextPageToken"`
	AppliedFilters AppliedFilters       `json:"appliedFilters"`
}
