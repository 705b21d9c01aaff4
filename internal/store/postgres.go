package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/models"

	"github.com/lib/pq"
)

// PostgresStore keeps the same records in relational tables. Products page by
// product_id keyset instead of a scan cursor.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "postgres-store"}),
		now:    time.Now,
	}
}

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutProduct(ctx context.Context, p models.Product) error {
	if p.MediaKeys == nil {
		p.MediaKeys = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (product_id, owner_id, title, description, media_keys, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ProductID, p.OwnerID, p.Title, p.Description, pq.Array(p.MediaKeys), p.Status,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, owner_id, title, description, media_keys, status
		FROM products WHERE product_id = $1`, productID,
	).Scan(&p.ProductID, &p.OwnerID, &p.Title, &p.Description, pq.Array(&p.MediaKeys), &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) PutListing(ctx context.Context, l models.Listing) error {
	if l.Metadata == nil {
		l.Metadata = map[string]interface{}{}
	}
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("marshal listing metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO listings (listing_id, product_id, price_cents, currency, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ListingID, l.ProductID, l.PriceCents, l.Currency, l.Status, meta,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	c = newConversation(c, s.now())
	meta, err := json.Marshal(c.Meta)
	if err != nil {
		return c, fmt.Errorf("marshal conversation meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, user_id, started_at, last_message_at, title, status, model_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conversation_id) DO NOTHING`,
		c.ConversationID, c.UserID, c.StartedAt, c.LastMessageAt, c.Title, c.Status, c.ModelID, meta,
	)
	if err != nil {
		return c, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) PutMessage(ctx context.Context, in MessageInput) (models.Message, error) {
	msg := newMessage(in, s.now())
	calls, err := json.Marshal(msg.ToolCalls)
	if err != nil {
		return msg, fmt.Errorf("marshal tool calls: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return msg, fmt.Errorf("begin message tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, created_at, message_id, role, content, media_keys, tool_calls)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ConversationID, msg.CreatedAt, msg.MessageID, msg.Role, msg.Content, pq.Array(msg.MediaKeys), calls,
	); err != nil {
		return msg, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = $1 WHERE conversation_id = $2`,
		msg.CreatedAt, msg.ConversationID,
	); err != nil {
		return msg, fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return msg, fmt.Errorf("commit message tx: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) ListProductsByOwner(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	cursor, err := DecodeToken(q.PageToken)
	if err != nil {
		return nil, err
	}
	after, _ := cursor["product_id"].(string)
	limit := ClampLimit(q.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, owner_id, title, description, media_keys, status
		FROM products
		WHERE owner_id = $1
		  AND ($2 = '' OR status = $2)
		  AND (NOT $3 OR cardinality(media_keys) > 0)
		  AND product_id > $4
		ORDER BY product_id
		LIMIT $5`,
		q.OwnerID, q.Status, q.RequireMedia, after, limit+1,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	page := &ProductPage{Items: []models.Product{}}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.OwnerID, &p.Title, &p.Description, pq.Array(&p.MediaKeys), &p.Status); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		page.Items = append(page.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		last := page.Items[limit-1].ProductID
		if page.NextPageToken, err = EncodeToken(map[string]interface{}{"product_id": last}); err != nil {
			return nil, err
		}
	}
	return page, nil
}
