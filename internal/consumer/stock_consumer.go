package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

// StockInvalidator drops cached stock for the ticket types in items.
type StockInvalidator interface {
	InvalidateStock(ctx context.Context, items []models.BookingItemEvent)
}

// StockConsumer keeps cached ticket stock in step with bookings. Every booking event
// that moves stock (created, cancelled) invalidates the affected cache entries.
type StockConsumer struct {
	invalidator StockInvalidator
	logger      *zap.Logger
}

func NewStockConsumer(invalidator StockInvalidator, logger *zap.Logger) *StockConsumer {
	return &StockConsumer{invalidator: invalidator, logger: logger}
}

// stockEvent holds the fields shared by booking.created and booking.cancelled.
type stockEvent struct {
	BookingID string                    `json:"booking_id"`
	Items     []models.BookingItemEvent `json:"items"`
}

// Handle processes one message body.
func (c *StockConsumer) Handle(ctx context.Context, body []byte) error {
	var event stockEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	c.invalidator.InvalidateStock(ctx, event.Items)
	c.logger.Info("✅ Stock cache refreshed",
		zap.String("booking_id", event.BookingID),
		zap.Int("items", len(event.Items)))
	return nil
}

// Run consumes messages until ctx is done or the channel closes.
func (c *StockConsumer) Run(ctx context.Context, messages <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.logger.Debug("📥 Received booking event", zap.String("queue", msg.RoutingKey))

			if err := c.Handle(ctx, msg.Body); err != nil {
				c.logger.Error("❌ Failed to process event", zap.Error(err))
				msg.Nack(false, false) // Don't requeue bad messages
				continue
			}
			msg.Ack(false)
		}
	}
}
