package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type VenueService struct {
	venues VenueStore
	clock  clock.Clock
}

func NewVenueService(venues VenueStore, clk clock.Clock) *VenueService {
	return &VenueService{venues: venues, clock: clk}
}

func (s *VenueService) List(ctx context.Context, page models.PageRequest) (models.Page[models.Venue], error) {
	page = page.Normalize()
	venues, err := s.venues.List(ctx, page)
	if err != nil {
		return models.Page[models.Venue]{}, err
	}
	return models.NewPage(venues, page.Limit, func(v models.Venue) uuid.UUID { return v.ID }), nil
}

func (s *VenueService) Get(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	return s.venues.GetByID(ctx, id)
}

// Create normalises the venue before the name uniqueness check runs.
func (s *VenueService) Create(ctx context.Context, req models.CreateVenueRequest) (*models.Venue, error) {
	venue := &models.Venue{
		ID:       uuid.New(),
		Name:     normalize(req.Name),
		Address:  normalize(req.Address),
		City:     normalize(req.City),
		Capacity: req.Capacity,
	}
	if venue.Name == "" || venue.Address == "" || venue.City == "" {
		return nil, models.ErrMissingFields
	}
	if venue.Capacity <= 0 {
		return nil, models.ErrInvalidCapacity
	}

	if err := s.venues.Create(ctx, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *VenueService) Edit(ctx context.Context, id uuid.UUID, req models.EditVenueRequest) (*models.Venue, error) {
	if req.IsEmpty() {
		return nil, models.ErrEmptyForm
	}

	venue, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		patch *string
		dst   *string
	}{
		{req.Name, &venue.Name},
		{req.Address, &venue.Address},
		{req.City, &venue.City},
	} {
		if f.patch == nil {
			continue
		}
		if *f.dst = normalize(*f.patch); *f.dst == "" {
			return nil, models.ErrMissingFields
		}
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, models.ErrInvalidCapacity
		}
		venue.Capacity = *req.Capacity
	}

	if err := s.venues.Update(ctx, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *VenueService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.venues.SoftDelete(ctx, id, s.clock.Now())
}
