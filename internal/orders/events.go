package orders

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sender delivers a message body with string attributes to a queue.
// aws.Publisher satisfies it.
type Sender interface {
	Send(ctx context.Context, body string, attributes map[string]string) (string, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher struct {
	sender Sender
}

// NewEventPublisher wraps a queue sender.
func NewEventPublisher(sender Sender) *EventPublisher {
	return &EventPublisher{sender: sender}
}

// PublishCreated sends a CreatedEvent for the order. correlationID is
// attached as a message attribute when non-empty.
func (p *EventPublisher) PublishCreated(ctx context.Context, o *Order, correlationID string) (string, error) {
	body, err := json.Marshal(NewCreatedEvent(o))
	if err != nil {
		return "", fmt.Errorf("marshal created event: %w", err)
	}
	id, err := p.sender.Send(ctx, string(body), map[string]string{
		"order_id":       o.OrderID,
		"customer_id":    o.CustomerID,
		"correlation_id": correlationID,
	})
	if err != nil {
		return "", fmt.Errorf("publish created event: %w", err)
	}
	return id, nil
}
