package products

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-checkout-orders/internal/dynamotest"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
)

const table = "products"

func newTestStore() (*Store, *dynamotest.Mock) {
	db := dynamotest.New().CreateTable(table, "id")
	s := NewStore(db, table)
	s.nowFunc = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.backoff = func(int) time.Duration { return 0 }
	return s, db
}

func seed(db *dynamotest.Mock, id, price string, qty int) {
	db.Seed(table, dynamotest.Item{
		"id":       &types.AttributeValueMemberS{Value: id},
		"name":     &types.AttributeValueMemberS{Value: "product " + id},
		"price":    &types.AttributeValueMemberN{Value: price},
		"quantity": &types.AttributeValueMemberN{Value: fmt.Sprint(qty)},
	})
}

func TestFindAllByID_ReturnsFoundSubset(t *testing.T) {
	s, db := newTestStore()
	seed(db, "p1", "10.0", 5)
	seed(db, "p2", "2.50", 1)

	got, err := s.FindAllByID(context.Background(), []string{"p2", "missing", "p1", "p2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p1", got[1].ID)
	assert.True(t, got[1].Price.Equal(money.MustParse("10")))
	assert.Equal(t, 5, got[1].Quantity)
	assert.Equal(t, 1, db.Calls["BatchGetItem"])
}

func TestFindAllByID_Empty(t *testing.T) {
	s, db := newTestStore()

	got, err := s.FindAllByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, db.Calls["BatchGetItem"])
}

func TestFindAllByID_ChunksLargeRequests(t *testing.T) {
	s, db := newTestStore()
	ids := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		id := fmt.Sprintf("p%03d", i)
		seed(db, id, "1", i)
		ids = append(ids, id)
	}

	got, err := s.FindAllByID(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, 3, db.Calls["BatchGetItem"])
	assert.Equal(t, "p000", got[0].ID)
	assert.Equal(t, "p249", got[249].ID)
}

func TestFindAllByID_RetriesUnprocessedKeys(t *testing.T) {
	s, db := newTestStore()
	seed(db, "p1", "10", 5)
	db.UnprocessedBatches = 2

	got, err := s.FindAllByID(context.Background(), []string{"p1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, db.Calls["BatchGetItem"])
}

func TestFindAllByID_GivesUpOnPersistentUnprocessedKeys(t *testing.T) {
	s, db := newTestStore()
	seed(db, "p1", "10", 5)
	db.UnprocessedBatches = maxUnprocessedRetries + 1

	_, err := s.FindAllByID(context.Background(), []string{"p1"})
	assert.ErrorIs(t, err, ErrUnprocessedKeys)
}

func TestUpdateQuantity_AppliesInOrder(t *testing.T) {
	s, db := newTestStore()
	seed(db, "p1", "10", 5)
	seed(db, "p2", "1", 9)

	err := s.UpdateQuantity(context.Background(), []QuantityUpdate{
		{ID: "p1", Quantity: 2},
		{ID: "p2", Quantity: 0},
		{ID: "p1", Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p1"}, db.Updates)

	got, err := s.FindAllByID(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, 4, got[0].Quantity)
	assert.Equal(t, 0, got[1].Quantity)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got[0].UpdatedAt)
}

func TestUpdateQuantity_UnknownProduct(t *testing.T) {
	s, _ := newTestStore()

	err := s.UpdateQuantity(context.Background(), []QuantityUpdate{{ID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateQuantity_WrapsClientError(t *testing.T) {
	s, db := newTestStore()
	seed(db, "p1", "10", 5)
	boom := errors.New("throttled")
	db.Fail["UpdateItem"] = boom

	err := s.UpdateQuantity(context.Background(), []QuantityUpdate{{ID: "p1", Quantity: 1}})
	assert.ErrorIs(t, err, boom)
}

func TestCreate(t *testing.T) {
	s, db := newTestStore()
	s.newID = func() string { return "p9" }

	p, err := s.Create(context.Background(), "Keyboard", money.MustParse("49.90"), 3)
	require.NoError(t, err)
	assert.Equal(t, "p9", p.ID)

	item := db.Get(table, "p9")
	require.NotNil(t, item)
	price, ok := item["price"].(*types.AttributeValueMemberN)
	require.True(t, ok, "price stored as number")
	assert.Equal(t, "49.9", price.Value)

	_, err = s.Create(context.Background(), "Keyboard", money.MustParse("1"), 1)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
