// internal/models/notification.go
package models

// ListingEvent is the message body published when a listing goes live.
type ListingEvent struct {
	Event      string `json:"event"` // "listing.created"
	ProductID  string `json:"product_id"`
	ListingID  string `json:"listing_id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	PriceCents int    `json:"price_cents"`
	Currency   string `json:"currency"`
	Stage      string `json:"stage,omitempty"`
}

// ListingEmail is the plain-text notice sent to the shop inbox.
type ListingEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
