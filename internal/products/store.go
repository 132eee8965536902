package products

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-checkout-orders/internal/aws"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
)

// BatchGetItem accepts at most 100 keys per request.
const batchGetLimit = 100

const maxUnprocessedRetries = 5

var (
	// ErrAlreadyExists is returned when a product with the same id is already stored.
	ErrAlreadyExists = errors.New("product already exists")
	// ErrNotFound is returned by UpdateQuantity for an id that is not stored.
	ErrNotFound = errors.New("product not found")
	// ErrUnprocessedKeys is returned when DynamoDB keeps throttling a batch read.
	ErrUnprocessedKeys = errors.New("batch get: unprocessed keys remain")
)

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
	backoff   func(attempt int) time.Duration
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 50 * time.Millisecond
		},
	}
}

// FindAllByID returns the products that exist among ids. Missing ids are
// silently skipped. Results follow the order in which ids first appear.
func (s *Store) FindAllByID(ctx context.Context, ids []string) ([]Product, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	byID := make(map[string]Product, len(unique))
	for start := 0; start < len(unique); start += batchGetLimit {
		end := min(start+batchGetLimit, len(unique))
		if err := s.batchGet(ctx, unique[start:end], byID); err != nil {
			return nil, err
		}
	}

	found := make([]Product, 0, len(byID))
	for _, id := range unique {
		if p, ok := byID[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (s *Store) batchGet(ctx context.Context, ids []string, into map[string]Product) error {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		})
	}
	request := map[string]types.KeysAndAttributes{
		s.tableName: {Keys: keys},
	}

	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return fmt.Errorf("batch get products: %w", err)
		}

		var page []Product
		if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.tableName], &page); err != nil {
			return fmt.Errorf("unmarshal products: %w", err)
		}
		for _, p := range page {
			into[p.ID] = p
		}

		pending, ok := out.UnprocessedKeys[s.tableName]
		if !ok || len(pending.Keys) == 0 {
			return nil
		}
		if attempt >= maxUnprocessedRetries {
			return fmt.Errorf("%w: %d keys", ErrUnprocessedKeys, len(pending.Keys))
		}
		request = map[string]types.KeysAndAttributes{s.tableName: pending}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff(attempt + 1)):
		}
	}
}

// UpdateQuantity overwrites the stock of each listed product. Updates are
// applied in list order, so a repeated id keeps its last value.
func (s *Store) UpdateQuantity(ctx context.Context, updates []QuantityUpdate) error {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	for _, u := range updates {
		_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: u.ID},
			},
			UpdateExpression:    awsString("SET quantity = :q, updated_at = :ua"),
			ConditionExpression: awsString("attribute_exists(id)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(u.Quantity)},
				":ua": &types.AttributeValueMemberS{Value: now},
			},
		})
		if err != nil {
			var sc smithy.APIError
			if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
				return fmt.Errorf("update quantity %s: %w", u.ID, ErrNotFound)
			}
			return fmt.Errorf("update quantity %s: %w", u.ID, err)
		}
	}
	return nil
}

// Create stores a new product with a generated id.
func (s *Store) Create(ctx context.Context, name string, price money.Money, quantity int) (*Product, error) {
	now := s.nowFunc().UTC()
	p := Product{
		ID:        s.newID(),
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("put product: %w", err)
	}
	return &p, nil
}

func awsString(s string) *string { return &s }
