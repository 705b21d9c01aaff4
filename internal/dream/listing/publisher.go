// Package listing turns a generated asset package into product and listing records.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/models"
	"dreamforge-workers/internal/store"
)

const (
	EventListingCreated = "listing.created"

	DefaultPriceCents = 1500
)

var (
	ErrProductWrite = errors.New("PRODUCT_WRITE_FAILED")
	ErrListingWrite = errors.New("LISTING_WRITE_FAILED")
)

// Records is the part of the record store publishing needs.
type Records interface {
	PutProduct(ctx context.Context, p models.Product) error
	PutListing(ctx context.Context, l models.Listing) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topicARN, event, message string) (string, error)
}

type Mailer interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

// Options configures pricing and the optional notification channels. A nil
// Events or Mail client disables that channel.
type Options struct {
	DefaultPriceCents int
	Currency          string
	Stage             string

	Events   EventPublisher
	TopicARN string

	Mail      Mailer
	FromEmail string
	ToEmail   string
}

type Publisher struct {
	records Records
	opts    Options
	logger  logger.Logger
}

func NewPublisher(records Records, opts Options, log logger.Logger) *Publisher {
	if opts.DefaultPriceCents <= 0 {
		opts.DefaultPriceCents = DefaultPriceCents
	}
	if opts.Currency == "" {
		opts.Currency = models.DefaultListingCurrency
	}
	return &Publisher{
		records: records,
		opts:    opts,
		logger:  log.With(map[string]interface{}{"component": "listing-publisher"}),
	}
}

// PriceOrDefault returns cents when positive, otherwise the configured default.
func (p *Publisher) PriceOrDefault(cents int) int {
	if cents > 0 {
		return cents
	}
	return p.opts.DefaultPriceCents
}

func (p *Publisher) Currency() string {
	return p.opts.Currency
}

// CreateProductAndListing writes a draft product and an active listing for it.
// The two writes are not transactional: a failed listing write leaves the product behind.
func (p *Publisher) CreateProductAndListing(ctx context.Context, userID string, pkg assets.Package, mediaKeys []string, priceCents int) (models.ListingIDs, error) {
	title := strings.TrimSpace(pkg.SuggestedTitle)
	if title == "" {
		title = models.DefaultProductTitle
	}
	if mediaKeys == nil {
		mediaKeys = []string{}
	}

	product := models.Product{
		ProductID:   store.NewID("prd"),
		OwnerID:     userID,
		Title:       title,
		Description: pkg.SuggestedDescription,
		MediaKeys:   mediaKeys,
		Status:      models.ProductStatusDraft,
	}
	if err := p.records.PutProduct(ctx, product); err != nil {
		return models.ListingIDs{}, fmt.Errorf("%w: %v", ErrProductWrite, err)
	}

	listing := models.Listing{
		ListingID:  store.NewID("lst"),
		ProductID:  product.ProductID,
		PriceCents: p.PriceOrDefault(priceCents),
		Currency:   p.opts.Currency,
		Status:     models.ListingStatusActive,
		Metadata:   map[string]interface{}{"stage": p.opts.Stage},
	}
	if err := p.records.PutListing(ctx, listing); err != nil {
		return models.ListingIDs{}, fmt.Errorf("%w: %v", ErrListingWrite, err)
	}

	metrics.ListingsCreated.Inc()
	p.logger.Info("product and listing created", map[string]interface{}{
		"productId":  product.ProductID,
		"listingId":  listing.ListingID,
		"ownerId":    userID,
		"priceCents": listing.PriceCents,
		"mediaKeys":  len(mediaKeys),
	})

	p.notify(ctx, product, listing)
	return models.ListingIDs{ProductID: product.ProductID, ListingID: listing.ListingID}, nil
}

// notify is best effort; failures are logged and never returned.
func (p *Publisher) notify(ctx context.Context, product models.Product, listing models.Listing) {
	ev := models.ListingEvent{
		Event:      EventListingCreated,
		ProductID:  product.ProductID,
		ListingID:  listing.ListingID,
		OwnerID:    product.OwnerID,
		Title:      product.Title,
		PriceCents: listing.PriceCents,
		Currency:   listing.Currency,
		Stage:      p.opts.Stage,
	}

	if p.opts.Events != nil && p.opts.TopicARN != "" {
		body, err := json.Marshal(ev)
		if err == nil {
			_, err = p.opts.Events.PublishEvent(ctx, p.opts.TopicARN, EventListingCreated, string(body))
		}
		if err != nil {
			p.logger.Warn("listing event not published", map[string]interface{}{
				"listingId": listing.ListingID,
				"error":     err.Error(),
			})
		}
	}

	if p.opts.Mail != nil && p.opts.FromEmail != "" && p.opts.ToEmail != "" {
		mail := listingEmail(product, listing)
		if _, err := p.opts.Mail.SendText(ctx, p.opts.FromEmail, p.opts.ToEmail, mail.Subject, mail.Body); err != nil {
			p.logger.Warn("listing email not sent", map[string]interface{}{
				"listingId": listing.ListingID,
				"error":     err.Error(),
			})
		}
	}
}

func listingEmail(product models.Product, listing models.Listing) models.ListingEmail {
	return models.ListingEmail{
		Subject: "New listing: " + product.Title,
		Body: fmt.Sprintf("Product %s is listed as %s at %d %s.\n\n%s\n",
			product.ProductID, listing.ListingID, listing.PriceCents, listing.Currency, product.Description),
	}
}
