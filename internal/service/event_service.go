package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type EventService struct {
	events  EventStore
	venues  VenueStore
	tickets TicketStore
	tx      Transactor
	clock   clock.Clock
	logger  *zap.Logger
}

func NewEventService(events EventStore, venues VenueStore, tickets TicketStore, tx Transactor, clk clock.Clock, logger *zap.Logger) *EventService {
	return &EventService{events: events, venues: venues, tickets: tickets, tx: tx, clock: clk, logger: logger}
}

// refreshStatus brings the stored status in line with the clock.
func (s *EventService) refreshStatus(ctx context.Context, event *models.Event) error {
	status := event.StatusAt(s.clock.Now())
	if status == event.Status {
		return nil
	}
	if err := s.events.UpdateStatus(ctx, event.ID, status); err != nil {
		return err
	}
	event.Status = status
	return nil
}

func (s *EventService) refreshAll(ctx context.Context, events []models.Event) error {
	for i := range events {
		if err := s.refreshStatus(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventService) List(ctx context.Context, page models.PageRequest) (models.Page[models.Event], error) {
	page = page.Normalize()
	events, err := s.events.List(ctx, page)
	if err != nil {
		return models.Page[models.Event]{}, err
	}
	if err := s.refreshAll(ctx, events); err != nil {
		return models.Page[models.Event]{}, err
	}
	return models.NewPage(events, page.Limit, eventID), nil
}

func (s *EventService) ListByVenue(ctx context.Context, venueID uuid.UUID, page models.PageRequest) (models.Page[models.Event], error) {
	if _, err := s.venues.GetByID(ctx, venueID); err != nil {
		return models.Page[models.Event]{}, err
	}

	page = page.Normalize()
	events, err := s.events.ListByVenue(ctx, venueID, page)
	if err != nil {
		return models.Page[models.Event]{}, err
	}
	if err := s.refreshAll(ctx, events); err != nil {
		return models.Page[models.Event]{}, err
	}
	return models.NewPage(events, page.Limit, eventID), nil
}

func eventID(e models.Event) uuid.UUID { return e.ID }

// Get returns a live event with a fresh status.
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refreshStatus(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) live(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.DeletedAt != nil {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

func (s *EventService) Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	venueID, err := ParseID(req.VenueID)
	if err != nil {
		return nil, err
	}
	name := normalize(req.Name)
	if name == "" {
		return nil, models.ErrMissingFields
	}
	start, err := parseDateTime(req.DateTime)
	if err != nil {
		return nil, err
	}
	if req.DurationMinutes <= 0 {
		return nil, models.ErrInvalidDuration
	}

	if _, err := s.venues.GetByID(ctx, venueID); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:              uuid.New(),
		VenueID:         venueID,
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		DateTime:        start,
		DurationMinutes: req.DurationMinutes,
	}
	event.Status = event.StatusAt(s.clock.Now())

	if err := s.checkConflict(ctx, event, nil); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("🎫 Event created", zap.String("event_id", event.ID.String()))
	return event, nil
}

func (s *EventService) checkConflict(ctx context.Context, event *models.Event, exclude *uuid.UUID) error {
	conflict, err := s.events.HasConflict(ctx, models.ConflictQuery{
		VenueID:   event.VenueID,
		Name:      event.Name,
		Start:     event.DateTime,
		End:       event.EndTime(),
		ExcludeID: exclude,
	})
	if err != nil {
		return err
	}
	if conflict {
		return models.ErrEventConflict
	}
	return nil
}

// Edit applies a partial patch; the overlap check uses the patched window.
func (s *EventService) Edit(ctx context.Context, id uuid.UUID, req models.EditEventRequest) (*models.Event, error) {
	if req.IsEmpty() {
		return nil, models.ErrEmptyForm
	}

	event, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.VenueID != nil {
		venueID, err := ParseID(*req.VenueID)
		if err != nil {
			return nil, err
		}
		if venueID != event.VenueID {
			if _, err := s.venues.GetByID(ctx, venueID); err != nil {
				return nil, err
			}
			event.VenueID = venueID
		}
	}
	if req.Name != nil {
		if event.Name = normalize(*req.Name); event.Name == "" {
			return nil, models.ErrMissingFields
		}
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.DateTime != nil {
		start, err := parseDateTime(*req.DateTime)
		if err != nil {
			return nil, err
		}
		event.DateTime = start
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, models.ErrInvalidDuration
		}
		event.DurationMinutes = *req.DurationMinutes
	}
	event.Status = event.StatusAt(s.clock.Now())

	if err := s.checkConflict(ctx, event, &event.ID); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete soft-deletes the event together with its ticket types.
func (s *EventService) Delete(ctx context.Context, id uuid.UUID) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.DeletedAt != nil {
		return models.ErrEventAlreadyDeleted
	}

	now := s.clock.Now()
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.events.SetDeleted(ctx, id, &now); err != nil {
			return err
		}
		return s.tickets.SoftDeleteByEvent(ctx, id, now)
	})
}

// Restore brings a deleted event back. Its ticket types stay deleted.
func (s *EventService) Restore(ctx context.Context, id uuid.UUID) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.DeletedAt == nil {
		return models.ErrEventNotDeleted
	}
	return s.events.SetDeleted(ctx, id, nil)
}

func (s *EventService) Cancel(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventCancelled {
		if err := s.events.UpdateStatus(ctx, id, models.EventCancelled); err != nil {
			return nil, err
		}
		event.Status = models.EventCancelled
		s.logger.Info("🚫 Event cancelled", zap.String("event_id", id.String()))
	}
	return event, nil
}
