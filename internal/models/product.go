// internal/models/product.go
package models

const (
	ProductStatusDraft     = "draft"
	ProductStatusActive    = "active"
	ListingStatusActive    = "active"
	DefaultProductTitle    = "Producto creativo"
	DefaultListingCurrency = "USD"
)

type Product struct {
	ProductID   string   `json:"product_id" dynamodbav:"product_id"`
	OwnerID     string   `json:"owner_id" dynamodbav:"owner_id"`
	Title       string   `json:"title" dynamodbav:"title"`
	Description string   `json:"description" dynamodbav:"description"`
	MediaKeys   []string `json:"media_keys" dynamodbav:"media_keys"`
	Status      string   `json:"status" dynamodbav:"status"`
}

type Listing struct {
	ListingID  string                 `json:"listing_id" dynamodbav:"listing_id"`
	ProductID  string                 `json:"product_id" dynamodbav:"product_id"`
	PriceCents int                    `json:"price_cents" dynamodbav:"price_cents"`
	Currency   string                 `json:"currency" dynamodbav:"currency"`
	Status     string                 `json:"status" dynamodbav:"status"`
	Metadata   map[string]interface{} `json:"metadata" dynamodbav:"metadata"`
}

// ListingIDs is what publishing returns to callers.
type ListingIDs struct {
	ProductID string `json:"product_id"`
	ListingID string `json:"listing_id"`
}

// Media is a stored object presented to clients.
type Media struct {
	Key  string  `json:"key"`
	URL  *string `json:"url"`
	Type string  `json:"type"`
}

// ProductView is a product as returned by the feed, with presigned media.
type ProductView struct {
	ProductID   string  `json:"product_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	OwnerID     string  `json:"owner_id"`
	Media       []Media `json:"media"`
}
