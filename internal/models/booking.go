package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCancelled      BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// MaxBookingQuantity caps the tickets of one type in a single booking; stock
// columns are int4.
const MaxBookingQuantity = math.MaxInt32

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Status        BookingStatus   `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentRef    *string         `json:"paymentRef,omitempty"`
	Items         []BookingItem   `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type BookingItem struct {
	ID             uuid.UUID       `json:"id"`
	BookingID      uuid.UUID       `json:"bookingId"`
	TicketTypeID   uuid.UUID       `json:"ticketTypeId"`
	EventID        uuid.UUID       `json:"eventId"`
	QuantityBooked int             `json:"quantityBooked"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type CreateBookingRequest struct {
	Items []CreateBookingItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateBookingItemRequest struct {
	TicketTypeID string `json:"ticketTypeId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0,lte=2147483647"`
}

// PendingCursor is the (created_at, id) position of the last pending booking a
// reconciliation pass has looked at.
type PendingCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// BookingItemInput is a validated line item handed to the booking service.
type BookingItemInput struct {
	TicketTypeID uuid.UUID
	Quantity     int
}

// BookingResult is what the caller gets back from a booking request.
type BookingResult struct {
	Message     string          `json:"message"`
	BookingID   uuid.UUID       `json:"bookingId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      BookingStatus   `json:"status"`
	PaymentURL  string          `json:"paymentUrl,omitempty"`
}
