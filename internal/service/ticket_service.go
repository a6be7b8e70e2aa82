package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type TicketService struct {
	tickets TicketStore
	events  EventStore
	clock   clock.Clock
}

func NewTicketService(tickets TicketStore, events EventStore, clk clock.Clock) *TicketService {
	return &TicketService{tickets: tickets, events: events, clock: clk}
}

// validPrice requires a positive amount with at most two decimal places.
func validPrice(price decimal.Decimal) bool {
	return price.IsPositive() && price.Equal(price.Truncate(2))
}

func (s *TicketService) liveEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.DeletedAt != nil {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

func (s *TicketService) Create(ctx context.Context, eventID uuid.UUID, req models.CreateTicketTypeRequest) (*models.TicketType, error) {
	name := normalize(req.Name)
	if name == "" || req.Price == nil {
		return nil, models.ErrMissingFields
	}
	if !validPrice(*req.Price) {
		return nil, models.ErrInvalidPrice
	}
	if req.TotalQuantity < 1 {
		return nil, models.ErrInvalidQuantity
	}

	if _, err := s.liveEvent(ctx, eventID); err != nil {
		return nil, err
	}

	ticket := &models.TicketType{
		ID:            uuid.New(),
		EventID:       eventID,
		Name:          name,
		Price:         *req.Price,
		TotalQuantity: req.TotalQuantity,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TicketType, error) {
	if _, err := s.liveEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tickets.ListByEvent(ctx, eventID)
}

func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.DeletedAt != nil {
		return nil, models.ErrTicketNotFound
	}
	return ticket, nil
}

// Update validates the patch. A total below the tickets already sold is refused
// here and again by the store, which evaluates it atomically.
func (s *TicketService) Update(ctx context.Context, id uuid.UUID, req models.UpdateTicketTypeRequest) (*models.TicketType, error) {
	if req.IsEmpty() {
		return nil, models.ErrEmptyForm
	}
	if req.Name != nil {
		name := normalize(*req.Name)
		if name == "" {
			return nil, models.ErrMissingFields
		}
		req.Name = &name
	}
	if req.Price != nil && !validPrice(*req.Price) {
		return nil, models.ErrInvalidPrice
	}
	if req.TotalQuantity != nil {
		if *req.TotalQuantity < 1 {
			return nil, models.ErrInvalidQuantity
		}
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if *req.TotalQuantity < current.Sold() {
			return nil, models.ErrInvalidTotalQuantity
		}
	}
	return s.tickets.Update(ctx, id, req)
}

func (s *TicketService) Delete(ctx context.Context, id uuid.UUID) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ticket.DeletedAt != nil {
		return models.ErrTicketAlreadyDeleted
	}
	now := s.clock.Now()
	return s.tickets.SetDeleted(ctx, id, &now)
}

// Restore undeletes a ticket type whose event is still live.
func (s *TicketService) Restore(ctx context.Context, id uuid.UUID) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ticket.DeletedAt == nil {
		return models.ErrTicketNotDeleted
	}
	if _, err := s.liveEvent(ctx, ticket.EventID); err != nil {
		return err
	}
	return s.tickets.SetDeleted(ctx, id, nil)
}
