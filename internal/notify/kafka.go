package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tixmarket/internal/models"
)

// OrderEvent is the message published when an order settles. Downstream
// consumers (seller webhooks, analytics) key on the order number.
type OrderEvent struct {
	Type        string     `json:"type"`
	OrderNumber string     `json:"order_number"`
	Marketplace int        `json:"marketplace_id"`
	Organizer   int        `json:"organizer_id"`
	Email       string     `json:"email"`
	Total       int        `json:"total"`
	Currency    string     `json:"currency"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Producer publishes order lifecycle events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer for the given brokers and topic
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

// PublishOrderPaid emits a confirmation event for a settled order
func (p *Producer) PublishOrderPaid(ctx context.Context, order *models.Order, email string) error {
	return p.publish(ctx, order.OrderNumber, OrderEvent{
		Type:        "order.paid",
		OrderNumber: order.OrderNumber,
		Marketplace: order.MarketplaceID,
		Organizer:   order.OrganizerID,
		Email:       email,
		Total:       order.Total,
		Currency:    order.Currency,
		PaidAt:      order.PaidAt,
	})
}

func (p *Producer) publish(ctx context.Context, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
