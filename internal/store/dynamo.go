package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Tables struct {
	Products      string
	Listings      string
	Conversations string
	Messages      string
}

type DynamoStore struct {
	api    DynamoAPI
	tables Tables
	logger logger.Logger
	now    func() time.Time
}

func NewDynamoStore(cfg aws.Config, tables Tables, log logger.Logger) *DynamoStore {
	return NewDynamoStoreWithAPI(dynamodb.NewFromConfig(cfg), tables, log)
}

func NewDynamoStoreWithAPI(api DynamoAPI, tables Tables, log logger.Logger) *DynamoStore {
	return &DynamoStore{
		api:    api,
		tables: tables,
		logger: log.With(map[string]interface{}{"component": "dynamo-store"}),
		now:    time.Now,
	}
}

func (s *DynamoStore) put(ctx context.Context, table string, v interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", table, err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(table), Item: item}); err != nil {
		return fmt.Errorf("put %s item: %w", table, err)
	}
	return nil
}

func (s *DynamoStore) PutProduct(ctx context.Context, p models.Product) error {
	if p.MediaKeys == nil {
		p.MediaKeys = []string{}
	}
	return s.put(ctx, s.tables.Products, p)
}

func (s *DynamoStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Products),
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var p models.Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product %s: %w", productID, err)
	}
	return &p, nil
}

func (s *DynamoStore) PutListing(ctx context.Context, l models.Listing) error {
	if l.Metadata == nil {
		l.Metadata = map[string]interface{}{}
	}
	return s.put(ctx, s.tables.Listings, l)
}

// EnsureConversation creates the conversation unless one with the same id exists.
func (s *DynamoStore) EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	c = newConversation(c, s.now())
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return c, fmt.Errorf("marshal conversation: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("conversation_id"))).
		Build()
	if err != nil {
		return c, fmt.Errorf("build condition: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tables.Conversations),
		Item:                     item,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	var exists *types.ConditionalCheckFailedException
	if errors.As(err, &exists) {
		s.logger.Debug("conversation already exists", map[string]interface{}{
			"conversationId": c.ConversationID,
		})
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("put conversation: %w", err)
	}
	return c, nil
}

// PutMessage appends a message and bumps the conversation's last_message_at.
func (s *DynamoStore) PutMessage(ctx context.Context, in MessageInput) (models.Message, error) {
	msg := newMessage(in, s.now())
	if err := s.put(ctx, s.tables.Messages, msg); err != nil {
		return msg, err
	}

	upd, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("last_message_at"), expression.Value(msg.CreatedAt))).
		Build()
	if err != nil {
		return msg, fmt.Errorf("build update: %w", err)
	}
	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Conversations),
		Key: map[string]types.AttributeValue{
			"conversation_id": &types.AttributeValueMemberS{Value: msg.ConversationID},
		},
		UpdateExpression:          upd.Update(),
		ExpressionAttributeNames:  upd.Names(),
		ExpressionAttributeValues: upd.Values(),
	})
	if err != nil {
		return msg, fmt.Errorf("touch conversation %s: %w", msg.ConversationID, err)
	}
	return msg, nil
}

// ListProductsByOwner scans one page of products. Filters apply after the scan
// limit, so a page may hold fewer items than the limit while a next token remains.
func (s *DynamoStore) ListProductsByOwner(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	cursor, err := DecodeToken(q.PageToken)
	if err != nil {
		return nil, err
	}

	filt := expression.Name("owner_id").Equal(expression.Value(q.OwnerID))
	if q.Status != "" {
		filt = filt.And(expression.Name("status").Equal(expression.Value(q.Status)))
	}
	if q.RequireMedia {
		filt = filt.And(expression.Name("media_keys").Size().GreaterThan(expression.Value(0)))
	}
	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tables.Products),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(ClampLimit(q.Limit))),
	}
	if cursor != nil {
		start, err := attributevalue.MarshalMap(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
		}
		input.ExclusiveStartKey = start
	}

	out, err := s.api.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}

	page := &ProductPage{Items: make([]models.Product, 0, len(out.Items))}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &page.Items); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}

	if len(out.LastEvaluatedKey) > 0 {
		var last map[string]interface{}
		if err := attributevalue.UnmarshalMap(out.LastEvaluatedKey, &last); err != nil {
			return nil, fmt.Errorf("unmarshal last key: %w", err)
		}
		if page.NextPageToken, err = EncodeToken(last); err != nil {
			return nil, err
		}
	}
	return page, nil
}
