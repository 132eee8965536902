// Package dynamotest provides an in-memory DynamoDB double for store tests.
//
// It understands the small expression dialect the stores use: SET-only update
// expressions and conditions built from attribute_exists(x),
// attribute_not_exists(x), #name = :value and n <= :value, joined by OR.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Mock is a minimal multi-table DynamoDB. Tables must be registered with their
// partition key name before use.
type Mock struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]Item

	// Fail makes the named operation ("GetItem", "PutItem", "UpdateItem",
	// "BatchGetItem") return the error.
	Fail map[string]error
	// UnprocessedBatches makes the next N BatchGetItem calls return every
	// requested key as unprocessed.
	UnprocessedBatches int

	Calls map[string]int
	// Updates records the key of every successful UpdateItem, in call order.
	Updates []string
}

// New returns an empty mock.
func New() *Mock {
	return &Mock{
		keys:   map[string]string{},
		tables: map[string]map[string]Item{},
		Fail:   map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table and its partition key attribute.
func (m *Mock) CreateTable(name, pk string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[name] = pk
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = map[string]Item{}
	}
	return m
}

// Seed stores an item directly.
func (m *Mock) Seed(table string, item Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := m.pkOf(table, item)
	if err != nil {
		panic(err)
	}
	m.tables[table][pk] = item
}

// Get returns the stored item or nil.
func (m *Mock) Get(table, pk string) Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table][pk]
}

// Len returns the number of items in a table.
func (m *Mock) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Mock) begin(op string) error {
	m.Calls[op]++
	return m.Fail[op]
}

func (m *Mock) pkOf(table string, item Item) (string, error) {
	name, ok := m.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamotest: missing key %q for table %q", name, table)
	}
	return s.Value, nil
}

func (m *Mock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *Mock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Item)
	if err != nil {
		return nil, err
	}
	existing, exists := m.tables[table][pk]
	if params.ConditionExpression != nil {
		if !evalCondition(*params.ConditionExpression, existing, exists, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{Message: stringPtr("The conditional request failed")}
		}
	}
	m.tables[table][pk] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *Mock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("UpdateItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing, exists := m.tables[table][pk]
	if params.ConditionExpression != nil {
		if !evalCondition(*params.ConditionExpression, existing, exists, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{Message: stringPtr("The conditional request failed")}
		}
	}
	item := copyItem(existing)
	if item == nil {
		item = copyItem(params.Key)
	}
	if params.UpdateExpression != nil {
		if err := applySet(*params.UpdateExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	m.tables[table][pk] = item
	m.Updates = append(m.Updates, pk)
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (m *Mock) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("BatchGetItem"); err != nil {
		return nil, err
	}

	if m.UnprocessedBatches > 0 {
		m.UnprocessedBatches--
		return &dyn.BatchGetItemOutput{UnprocessedKeys: params.RequestItems}, nil
	}

	out := &dyn.BatchGetItemOutput{Responses: map[string][]Item{}}
	for table, ka := range params.RequestItems {
		if len(ka.Keys) > 100 {
			return nil, errors.New("dynamotest: too many keys in BatchGetItem")
		}
		seen := map[string]bool{}
		for _, key := range ka.Keys {
			pk, err := m.pkOf(table, key)
			if err != nil {
				return nil, err
			}
			if seen[pk] {
				return nil, errors.New("dynamotest: provided list of item keys contains duplicates")
			}
			seen[pk] = true
			if item, ok := m.tables[table][pk]; ok {
				out.Responses[table] = append(out.Responses[table], copyItem(item))
			}
		}
	}
	return out, nil
}

func evalCondition(expr string, item Item, exists bool, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, part := range strings.Split(expr, " OR ") {
		if evalTerm(strings.TrimSpace(part), item, exists, names, values) {
			return true
		}
	}
	return false
}

func evalTerm(expr string, item Item, exists bool, names map[string]string, values map[string]types.AttributeValue) bool {
	switch {
	case strings.HasPrefix(expr, "attribute_not_exists("):
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_not_exists("), ")"), names)
		if !exists {
			return true
		}
		_, ok := item[attr]
		return !ok
	case strings.HasPrefix(expr, "attribute_exists("):
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_exists("), ")"), names)
		if !exists {
			return false
		}
		_, ok := item[attr]
		return ok
	}

	if !exists {
		return false
	}
	if lhs, rhs, ok := strings.Cut(expr, "<="); ok {
		got, ok := item[resolveName(strings.TrimSpace(lhs), names)].(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		want, ok := values[strings.TrimSpace(rhs)].(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		a, errA := strconv.ParseFloat(got.Value, 64)
		b, errB := strconv.ParseFloat(want.Value, 64)
		return errA == nil && errB == nil && a <= b
	}

	lhs, rhs, ok := strings.Cut(expr, "=")
	if !ok {
		return false
	}
	attr := resolveName(strings.TrimSpace(lhs), names)
	want, ok := values[strings.TrimSpace(rhs)].(*types.AttributeValueMemberS)
	if !ok {
		return false
	}
	got, ok := item[attr].(*types.AttributeValueMemberS)
	return ok && got.Value == want.Value
}

func applySet(expr string, item Item, names map[string]string, values map[string]types.AttributeValue) error {
	body, ok := strings.CutPrefix(strings.TrimSpace(expr), "SET ")
	if !ok {
		return fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	for _, clause := range strings.Split(body, ",") {
		lhs, rhs, ok := strings.Cut(clause, "=")
		if !ok {
			return fmt.Errorf("dynamotest: malformed clause %q", clause)
		}
		v, ok := values[strings.TrimSpace(rhs)]
		if !ok {
			return fmt.Errorf("dynamotest: missing value %q", strings.TrimSpace(rhs))
		}
		item[resolveName(strings.TrimSpace(lhs), names)] = v
	}
	return nil
}

func resolveName(s string, names map[string]string) string {
	if strings.HasPrefix(s, "#") {
		if n, ok := names[s]; ok {
			return n
		}
	}
	return s
}

func copyItem(in Item) Item {
	if in == nil {
		return nil
	}
	out := make(Item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func stringPtr(s string) *string { return &s }
