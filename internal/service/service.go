package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, page models.PageRequest) ([]models.User, error)
}

type VenueStore interface {
	Create(ctx context.Context, venue *models.Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	Update(ctx context.Context, venue *models.Venue) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, page models.PageRequest) ([]models.Venue, error)
}

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, page models.PageRequest) ([]models.Event, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID, page models.PageRequest) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error
	SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error
	HasConflict(ctx context.Context, q models.ConflictQuery) (bool, error)
}

type TicketStore interface {
	Create(ctx context.Context, ticket *models.TicketType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TicketType, error)
	Update(ctx context.Context, id uuid.UUID, patch models.UpdateTicketTypeRequest) (*models.TicketType, error)
	SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error
	SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

type BookingStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindBookableTicketTypes(ctx context.Context, ids []uuid.UUID) ([]models.TicketType, error)
	Create(ctx context.Context, booking *models.Booking) error
	ReserveStock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) ([]models.Booking, error)
	ListPending(ctx context.Context, olderThan time.Time, after *models.PendingCursor, limit int) ([]models.Booking, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID, paymentStatus models.PaymentStatus) (bool, error)
}

// Transactor runs fn in a transaction shared by every store called with its ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Gateway is the payment provider.
type Gateway interface {
	Initialize(ctx context.Context, charge models.ChargeRequest) (*models.Authorization, error)
	Verify(ctx context.Context, reference string) (*models.Verification, error)
}

// EventPublisher announces booking lifecycle changes.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *models.Booking) error
	PublishBookingStatus(ctx context.Context, booking *models.Booking) error
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseID parses a path or body id, reporting models.ErrInvalidID on failure.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, models.ErrInvalidID
	}
	return id, nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDateTime accepts ISO-8601 timestamps; values without a zone are taken as UTC.
func parseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, models.ErrInvalidDateTime
}
