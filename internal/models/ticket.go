package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketType struct {
	ID                uuid.UUID       `json:"id"`
	EventID           uuid.UUID       `json:"eventId"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"totalQuantity"`
	QuantityAvailable int             `json:"quantityAvailable"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	DeletedAt         *time.Time      `json:"deletedAt,omitempty"`
}

// Sold is how many tickets of this type are held by bookings.
func (t TicketType) Sold() int {
	return t.TotalQuantity - t.QuantityAvailable
}

type CreateTicketTypeRequest struct {
	Name          string           `json:"name" binding:"required"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	TotalQuantity int              `json:"totalQuantity"`
}

type UpdateTicketTypeRequest struct {
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	TotalQuantity *int             `json:"totalQuantity"`
}

func (r UpdateTicketTypeRequest) IsEmpty() bool {
	return r.Name == nil && r.Price == nil && r.TotalQuantity == nil
}
