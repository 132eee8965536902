package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/imrishuroy/go-checkout-orders/internal/customers"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
	"github.com/imrishuroy/go-checkout-orders/internal/products"
)

type memCustomers struct {
	byID map[string]customers.Customer
	err  error
}

func (m *memCustomers) FindByID(ctx context.Context, id string) (*customers.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type memProducts struct {
	mu        sync.Mutex
	byID      map[string]products.Product
	findErr   error
	updateErr error
	findCalls int
	updates   [][]products.QuantityUpdate
}

func (m *memProducts) FindAllByID(ctx context.Context, ids []string) ([]products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []products.Product
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) UpdateQuantity(ctx context.Context, updates []products.QuantityUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updates)
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, u := range updates {
		p := m.byID[u.ID]
		p.Quantity = u.Quantity
		m.byID[u.ID] = p
	}
	return nil
}

func (m *memProducts) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Quantity
}

type memOrders struct {
	mu     sync.Mutex
	byID   map[string]orders.Order
	seq    int
	err    error
	inputs []orders.CreateOrderInput
}

func (m *memOrders) Create(ctx context.Context, in orders.CreateOrderInput) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	m.seq++
	o := orders.Order{OrderID: fmt.Sprintf("o%d", m.seq), CustomerID: in.CustomerID}
	for i, li := range in.Products {
		o.Products = append(o.Products, orders.LineItem{
			ID:        fmt.Sprintf("o%d-li%d", m.seq, i),
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Price:     li.Price,
		})
	}
	if m.byID == nil {
		m.byID = map[string]orders.Order{}
	}
	m.byID[o.OrderID] = o
	return &o, nil
}

func (m *memOrders) FindByID(ctx context.Context, id string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

type fixture struct {
	customers *memCustomers
	products  *memProducts
	orders    *memOrders
}

// newFixture seeds customer c1 and product p1 (price 10.0, stock 5).
func newFixture() *fixture {
	return &fixture{
		customers: &memCustomers{byID: map[string]customers.Customer{"c1": {ID: "c1", Name: "Ada"}}},
		products: &memProducts{byID: map[string]products.Product{
			"p1": {ID: "p1", Name: "Widget", Price: money.MustParse("10.0"), Quantity: 5},
		}},
		orders: &memOrders{},
	}
}

func (f *fixture) addProduct(id, price string, qty int) {
	f.products.byID[id] = products.Product{ID: id, Price: money.MustParse(price), Quantity: qty}
}
