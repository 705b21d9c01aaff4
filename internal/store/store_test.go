package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

// ==========================
// Helpers
// ==========================

func TestNewID(t *testing.T) {
	id := NewID("prd")
	assert.Regexp(t, regexp.MustCompile(`^prd_[0-9a-f]{12}$`), id)
	assert.NotEqual(t, id, NewID("prd"))
}

func TestMillisString(t *testing.T) {
	assert.Equal(t, "1741064767008", MillisString(fixedNow))
	assert.Len(t, MillisString(time.Unix(1, 0)), 13)
}

func TestClipContent(t *testing.T) {
	assert.Equal(t, "short", ClipContent("short"))
	long := strings.Repeat("ñ", MaxMessageChars+10)
	assert.Equal(t, MaxMessageChars, len([]rune(ClipContent(long))))
}

func TestToken_RoundTrip(t *testing.T) {
	tok, err := EncodeToken(map[string]interface{}{"product_id": "prd_1"})
	require.NoError(t, err)
	cur, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "prd_1", cur["product_id"])

	empty, err := EncodeToken(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	cur, err = DecodeToken("  ")
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = DecodeToken("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

// ==========================
// DynamoDB
// ==========================

type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	scans   []*dynamodb.ScanInput
	putErr  map[string]error
	getOut  *dynamodb.GetItemOutput
	scanOut *dynamodb.ScanOutput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if err := f.putErr[aws.ToString(in.TableName)]; err != nil {
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	return f.scanOut, nil
}

var testTables = Tables{Products: "products", Listings: "listings", Conversations: "convs", Messages: "msgs"}

func newTestDynamo(t *testing.T, api *fakeDynamo) *DynamoStore {
	s := NewDynamoStoreWithAPI(api, testTables, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestDynamoStore_PutProductAndListing(t *testing.T) {
	api := &fakeDynamo{}
	s := newTestDynamo(t, api)

	require.NoError(t, s.PutProduct(context.Background(), models.Product{ProductID: "prd_1", OwnerID: "u1", Status: "draft"}))
	require.NoError(t, s.PutListing(context.Background(), models.Listing{ListingID: "lst_1", ProductID: "prd_1", PriceCents: 1500}))

	require.Len(t, api.puts, 2)
	assert.Equal(t, "products", aws.ToString(api.puts[0].TableName))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "prd_1"}, api.puts[0].Item["product_id"])
	assert.IsType(t, &types.AttributeValueMemberL{}, api.puts[0].Item["media_keys"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1500"}, api.puts[1].Item["price_cents"])
}

func TestDynamoStore_GetProduct(t *testing.T) {
	api := &fakeDynamo{}
	s := newTestDynamo(t, api)

	_, err := s.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	item, err := attributevalue.MarshalMap(models.Product{ProductID: "prd_2", Title: "Fox", MediaKeys: []string{"a.png"}})
	require.NoError(t, err)
	api.getOut = &dynamodb.GetItemOutput{Item: item}
	p, err := s.GetProduct(context.Background(), "prd_2")
	require.NoError(t, err)
	assert.Equal(t, "Fox", p.Title)
	assert.Equal(t, []string{"a.png"}, p.MediaKeys)
}

func TestDynamoStore_EnsureConversation(t *testing.T) {
	api := &fakeDynamo{putErr: map[string]error{
		"convs": &types.ConditionalCheckFailedException{Message: aws.String("exists")},
	}}
	s := newTestDynamo(t, api)

	c, err := s.EnsureConversation(context.Background(), models.Conversation{ConversationID: "conv_1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationTitle, c.Title)
	assert.Equal(t, "active", c.Status)
	assert.Equal(t, MillisString(fixedNow), c.StartedAt)
	assert.Equal(t, c.StartedAt, c.LastMessageAt)
	assert.Contains(t, aws.ToString(api.puts[0].ConditionExpression), "attribute_not_exists")

	api.putErr["convs"] = errors.New("ProvisionedThroughputExceeded")
	_, err = s.EnsureConversation(context.Background(), models.Conversation{ConversationID: "conv_2"})
	assert.ErrorContains(t, err, "put conversation")
}

func TestDynamoStore_PutMessage(t *testing.T) {
	api := &fakeDynamo{}
	s := newTestDynamo(t, api)

	msg, err := s.PutMessage(context.Background(), MessageInput{
		ConversationID: "conv_1",
		Role:           models.RoleUser,
		Content:        strings.Repeat("x", 5000),
	})
	require.NoError(t, err)
	assert.Len(t, msg.Content, MaxMessageChars)
	assert.Equal(t, "1741064767008", msg.CreatedAt)
	assert.True(t, strings.HasPrefix(msg.MessageID, "msg_"))
	assert.Equal(t, []string{}, msg.MediaKeys)

	require.Len(t, api.updates, 1)
	upd := api.updates[0]
	assert.Equal(t, "convs", aws.ToString(upd.TableName))
	assert.Contains(t, upd.ExpressionAttributeNames, "#0")
	assert.Equal(t, "last_message_at", upd.ExpressionAttributeNames["#0"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "1741064767008"}, upd.ExpressionAttributeValues[":0"])
}

func TestDynamoStore_ListProductsByOwner(t *testing.T) {
	items := make([]map[string]types.AttributeValue, 0, 2)
	for _, p := range []models.Product{
		{ProductID: "prd_a", OwnerID: "u1", MediaKeys: []string{"a.png"}, Status: "draft"},
		{ProductID: "prd_b", OwnerID: "u1", MediaKeys: []string{"b.pdf"}, Status: "draft"},
	} {
		av, err := attributevalue.MarshalMap(p)
		require.NoError(t, err)
		items = append(items, av)
	}
	api := &fakeDynamo{scanOut: &dynamodb.ScanOutput{
		Items:            items,
		LastEvaluatedKey: map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: "prd_b"}},
	}}
	s := newTestDynamo(t, api)

	page, err := s.ListProductsByOwner(context.Background(), ProductQuery{
		OwnerID: "u1", Limit: 500, Status: "draft", RequireMedia: true,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "prd_a", page.Items[0].ProductID)
	require.NotEmpty(t, page.NextPageToken)

	scan := api.scans[0]
	assert.Equal(t, int32(MaxPageLimit), aws.ToInt32(scan.Limit))
	assert.Contains(t, aws.ToString(scan.FilterExpression), "size (")
	assert.Nil(t, scan.ExclusiveStartKey)

	// second page resumes from the returned token
	api.scanOut = &dynamodb.ScanOutput{}
	page, err = s.ListProductsByOwner(context.Background(), ProductQuery{OwnerID: "u1", PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Empty(t, page.NextPageToken)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "prd_b"}, api.scans[1].ExclusiveStartKey["product_id"])
	assert.Equal(t, int32(DefaultPageLimit), aws.ToInt32(api.scans[1].Limit))
	assert.NotContains(t, aws.ToString(api.scans[1].FilterExpression), "size (")

	_, err = s.ListProductsByOwner(context.Background(), ProductQuery{OwnerID: "u1", PageToken: "!!"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

// ==========================
// Postgres
// ==========================

func newTestPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewPostgresStore(db, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestPostgresStore_PutProduct(t *testing.T) {
	s, mock := newTestPostgres(t)
	mock.ExpectExec(`INSERT INTO products`).
		WithArgs("prd_1", "u1", "Fox", "desc", sqlmock.AnyArg(), "draft").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.PutProduct(context.Background(), models.Product{
		ProductID: "prd_1", OwnerID: "u1", Title: "Fox", Description: "desc", Status: "draft",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProduct(t *testing.T) {
	s, mock := newTestPostgres(t)
	mock.ExpectQuery(`SELECT product_id, owner_id, title, description, media_keys, status`).
		WithArgs("prd_1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "owner_id", "title", "description", "media_keys", "status"}).
			AddRow("prd_1", "u1", "Fox", "", "{a.png,b.pdf}", "draft"))
	mock.ExpectQuery(`SELECT product_id`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	p, err := s.GetProduct(context.Background(), "prd_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.pdf"}, p.MediaKeys)

	_, err = s.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureConversationAndMessage(t *testing.T) {
	s, mock := newTestPostgres(t)
	mock.ExpectExec(`INSERT INTO conversations .* ON CONFLICT \(conversation_id\) DO NOTHING`).
		WithArgs("conv_1", "u1", "1741064767008", "1741064767008", "Idea", "active", "model", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("conv_1", "1741064767008", sqlmock.AnyArg(), "user", "hola", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE conversations SET last_message_at`).
		WithArgs("1741064767008", "conv_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := s.EnsureConversation(context.Background(), models.Conversation{
		ConversationID: "conv_1", UserID: "u1", Title: "Idea", ModelID: "model",
	})
	require.NoError(t, err)

	_, err = s.PutMessage(context.Background(), MessageInput{ConversationID: "conv_1", Role: "user", Content: "hola"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutMessageRollsBack(t *testing.T) {
	s, mock := newTestPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.PutMessage(context.Background(), MessageInput{ConversationID: "conv_1", Role: "user"})
	assert.ErrorContains(t, err, "insert message")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProductsByOwner(t *testing.T) {
	s, mock := newTestPostgres(t)
	cols := []string{"product_id", "owner_id", "title", "description", "media_keys", "status"}
	mock.ExpectQuery(`SELECT product_id, owner_id, title, description, media_keys, status\s+FROM products`).
		WithArgs("u1", "", true, "", 3).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("prd_a", "u1", "A", "", "{a.png}", "draft").
			AddRow("prd_b", "u1", "B", "", "{b.png}", "draft").
			AddRow("prd_c", "u1", "C", "", "{c.png}", "draft"))

	page, err := s.ListProductsByOwner(context.Background(), ProductQuery{OwnerID: "u1", Limit: 2, RequireMedia: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextPageToken)

	cur, err := DecodeToken(page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "prd_b", cur["product_id"])

	mock.ExpectQuery(`FROM products`).
		WithArgs("u1", "", true, "prd_b", 3).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("prd_c", "u1", "C", "", "{c.png}", "draft"))

	page, err = s.ListProductsByOwner(context.Background(), ProductQuery{OwnerID: "u1", Limit: 2, RequireMedia: true, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.NextPageToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
