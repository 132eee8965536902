package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	last *sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.last = in
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: sdkaws.String("msg-1")}, nil
}

func TestPublisher_Send(t *testing.T) {
	m := &mockSQS{}
	p := NewPublisher(m, "https://sqs.us-east-1.amazonaws.com/123/orders")

	id, err := p.Send(context.Background(), `{"order_id":"o1"}`, map[string]string{
		"order_id":       "o1",
		"correlation_id": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "msg-1" {
		t.Fatalf("expected message id msg-1, got %s", id)
	}
	if got := sdkaws.ToString(m.last.QueueUrl); got != p.QueueURL {
		t.Fatalf("queue url mismatch: %s", got)
	}
	if len(m.last.MessageAttributes) != 1 {
		t.Fatalf("expected empty attribute to be skipped, got %v", m.last.MessageAttributes)
	}
	if v := m.last.MessageAttributes["order_id"]; sdkaws.ToString(v.StringValue) != "o1" || sdkaws.ToString(v.DataType) != "String" {
		t.Fatalf("unexpected order_id attribute: %+v", v)
	}
}

func TestPublisher_NoQueue(t *testing.T) {
	p := NewPublisher(&mockSQS{}, "")
	if _, err := p.Send(context.Background(), "{}", nil); !errors.Is(err, ErrNoQueue) {
		t.Fatalf("expected ErrNoQueue, got %v", err)
	}
}

func TestPublisher_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPublisher(&mockSQS{err: boom}, "q")
	if _, err := p.Send(context.Background(), "{}", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
