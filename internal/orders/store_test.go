package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-checkout-orders/internal/dynamotest"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
)

const table = "orders"

func newTestStore() (*Store, *dynamotest.Mock) {
	db := dynamotest.New().CreateTable(table, "order_id")
	s := NewStore(db, table)
	s.nowFunc = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s, db
}

func TestCreate_EmbedsLineItemsInInputOrder(t *testing.T) {
	s, db := newTestStore()
	ctx := context.Background()

	o, err := s.Create(ctx, CreateOrderInput{
		CustomerID: "c1",
		Products: []LineItemInput{
			{ProductID: "p2", Quantity: 1, Price: money.MustParse("2.50")},
			{ProductID: "p1", Quantity: 3, Price: money.MustParse("10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", o.OrderID)
	require.Len(t, o.Products, 2)
	assert.Equal(t, "id-2", o.Products[0].ID)
	assert.Equal(t, "p2", o.Products[0].ProductID)
	assert.Equal(t, "p1", o.Products[1].ProductID)
	assert.Equal(t, 1, db.Calls["PutItem"])

	got, err := s.FindByID(ctx, o.OrderID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.CustomerID)
	require.Len(t, got.Products, 2)
	assert.Equal(t, 3, got.Products[1].Quantity)
	assert.True(t, got.Products[0].Price.Equal(money.MustParse("2.5")))
	assert.True(t, got.Total().Equal(money.MustParse("32.5")))
}

func TestCreate_IDCollision(t *testing.T) {
	s, _ := newTestStore()
	s.newID = func() string { return "same" }
	ctx := context.Background()

	_, err := s.Create(ctx, CreateOrderInput{CustomerID: "c1"})
	require.NoError(t, err)

	_, err = s.Create(ctx, CreateOrderInput{CustomerID: "c1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreate_WrapsClientError(t *testing.T) {
	s, db := newTestStore()
	boom := errors.New("boom")
	db.Fail["PutItem"] = boom

	_, err := s.Create(context.Background(), CreateOrderInput{CustomerID: "c1"})
	assert.ErrorIs(t, err, boom)
}

func TestFindByID_NotFound(t *testing.T) {
	s, _ := newTestStore()

	got, err := s.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
