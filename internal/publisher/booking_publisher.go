package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/messaging"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

const (
	BookingCreatedQueue   = "booking.created"
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// Queues lists every queue the publisher writes to.
var Queues = []string{BookingCreatedQueue, BookingConfirmedQueue, BookingCancelledQueue}

// Nothing in ticketsys drains booking.confirmed, so it is capped.
var queueOptions = map[string]messaging.QueueOptions{
	BookingConfirmedQueue: {MessageTTL: 24 * time.Hour, MaxLength: 10000},
}

// Broker is the part of the message broker the publisher needs.
type Broker interface {
	DeclareQueue(name string, opts messaging.QueueOptions) error
	Publish(ctx context.Context, queue string, message []byte) error
}

type BookingPublisher struct {
	broker Broker
	logger *zap.Logger
	now    func() time.Time
}

func NewBookingPublisher(broker Broker, logger *zap.Logger) (*BookingPublisher, error) {
	for _, queue := range Queues {
		if err := broker.DeclareQueue(queue, queueOptions[queue]); err != nil {
			return nil, err
		}
	}

	return &BookingPublisher{broker: broker, logger: logger, now: time.Now}, nil
}

// PublishBookingCreated publishes a booking.created event
func (p *BookingPublisher) PublishBookingCreated(ctx context.Context, booking *models.Booking) error {
	event := models.BookingCreatedEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
		Items:       models.NewBookingItemEvents(booking.Items),
		OccurredAt:  p.now().UTC(),
	}
	return p.publish(ctx, BookingCreatedQueue, event)
}

// PublishBookingStatus publishes booking.confirmed or booking.cancelled
func (p *BookingPublisher) PublishBookingStatus(ctx context.Context, booking *models.Booking) error {
	var queue string
	switch booking.Status {
	case models.BookingConfirmed:
		queue = BookingConfirmedQueue
	case models.BookingCancelled:
		queue = BookingCancelledQueue
	default:
		return fmt.Errorf("no queue for booking status %s", booking.Status)
	}

	event := models.BookingStatusEvent{
		BookingID:  booking.ID,
		Status:     booking.Status,
		Items:      models.NewBookingItemEvents(booking.Items),
		OccurredAt: p.now().UTC(),
	}
	return p.publish(ctx, queue, event)
}

func (p *BookingPublisher) publish(ctx context.Context, queue string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.broker.Publish(ctx, queue, data); err != nil {
		return err
	}
	p.logger.Info("📤 Booking event published", zap.String("queue", queue))
	return nil
}

// NopPublisher drops events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingCreated(context.Context, *models.Booking) error { return nil }
func (NopPublisher) PublishBookingStatus(context.Context, *models.Booking) error  { return nil }
