// Package store persists products, listings and the conversation audit trail.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dreamforge-workers/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidPageToken = errors.New("INVALID_PAGE_TOKEN")
	ErrNotFound         = errors.New("RECORD_NOT_FOUND")
)

const (
	MaxMessageChars = 4000

	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// RecordStore is the append-only record persistence used by the pipeline.
type RecordStore interface {
	PutProduct(ctx context.Context, p models.Product) error
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	PutListing(ctx context.Context, l models.Listing) error
	EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, error)
	PutMessage(ctx context.Context, m MessageInput) (models.Message, error)
	ListProductsByOwner(ctx context.Context, q ProductQuery) (*ProductPage, error)
}

// MessageInput describes one conversation message to append.
type MessageInput struct {
	ConversationID string
	Role           string
	Content        string
	MediaKeys      []string
	ToolCalls      []map[string]interface{}
	MessageID      string
}

// ProductQuery filters the owner's products. An empty Status matches all.
type ProductQuery struct {
	OwnerID      string
	Limit        int
	PageToken    string
	Status       string
	RequireMedia bool
}

type ProductPage struct {
	Items         []models.Product
	NextPageToken string
}

// NewID returns prefix + "_" + 12 hex characters.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// MillisString renders t as a zero-padded 13 digit millisecond timestamp.
func MillisString(t time.Time) string {
	return fmt.Sprintf("%013d", t.UnixMilli())
}

// ClipContent keeps at most MaxMessageChars characters.
func ClipContent(s string) string {
	if utf8.RuneCountInString(s) <= MaxMessageChars {
		return s
	}
	return string([]rune(s)[:MaxMessageChars])
}

// ClampLimit bounds a page size to 1..MaxPageLimit, defaulting to DefaultPageLimit.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPageLimit
	case n > MaxPageLimit:
		return MaxPageLimit
	default:
		return n
	}
}

func newConversation(c models.Conversation, now time.Time) models.Conversation {
	ts := MillisString(now)
	if c.Title == "" {
		c.Title = models.DefaultConversationTitle
	}
	if c.Status == "" {
		c.Status = models.ConversationStatusActive
	}
	if c.Meta == nil {
		c.Meta = map[string]interface{}{}
	}
	c.StartedAt, c.LastMessageAt = ts, ts
	return c
}

func newMessage(in MessageInput, now time.Time) models.Message {
	id := in.MessageID
	if id == "" {
		id = NewID("msg")
	}
	media := in.MediaKeys
	if media == nil {
		media = []string{}
	}
	calls := in.ToolCalls
	if calls == nil {
		calls = []map[string]interface{}{}
	}
	return models.Message{
		ConversationID: in.ConversationID,
		CreatedAt:      MillisString(now),
		MessageID:      id,
		Role:           in.Role,
		Content:        ClipContent(in.Content),
		MediaKeys:      media,
		ToolCalls:      calls,
	}
}
