package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingCreatedEvent is published once the reservation transaction commits.
type BookingCreatedEvent struct {
	BookingID   uuid.UUID          `json:"booking_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Status      BookingStatus      `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []BookingItemEvent `json:"items"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

type BookingItemEvent struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	EventID      uuid.UUID `json:"event_id"`
	Quantity     int       `json:"quantity"`
}

// BookingStatusEvent is published when a booking leaves PENDING_PAYMENT.
type BookingStatusEvent struct {
	BookingID  uuid.UUID          `json:"booking_id"`
	Status     BookingStatus      `json:"status"`
	Items      []BookingItemEvent `json:"items,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewBookingItemEvents(items []BookingItem) []BookingItemEvent {
	out := make([]BookingItemEvent, 0, len(items))
	for _, item := range items {
		out = append(out, BookingItemEvent{
			TicketTypeID: item.TicketTypeID,
			EventID:      item.EventID,
			Quantity:     item.QuantityBooked,
		})
	}
	return out
}
