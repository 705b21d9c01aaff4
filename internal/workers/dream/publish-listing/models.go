// internal/workers/dream/publish-listing/models.go
package publishlisting

import "dreamforge-workers/internal/dream/assets"

type Input struct {
	UserID     string          `json:"userId"`
	Package    *assets.Package `json:"package"`
	MediaKeys  []string        `json:"mediaKeys"`
	PriceCents int             `json:"priceCents"`
}

type Output struct {
	ProductID  string `json:"productId"`
	ListingID  string `json:"listingId"`
	PriceCents int    `json:"priceCents"`
	Currency   string `json:"currency"`
}
