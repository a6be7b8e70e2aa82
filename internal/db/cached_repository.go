package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

// Cache key helpers
func eventKey(id uuid.UUID) string {
	return "event:" + id.String()
}

func ticketKey(id uuid.UUID) string {
	return "ticket:" + id.String()
}

func eventTicketsKey(eventID uuid.UUID) string {
	return "tickets:event:" + eventID.String()
}

// readThrough serves key from the cache or loads and stores it.
func readThrough[T any](ctx context.Context, c *cache.RedisCache, logger *zap.Logger, key string, load func() (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		logger.Debug("📦 Cache HIT", zap.String("key", key))
		return cached, nil
	}
	if !cache.IsMiss(err) {
		logger.Warn("⚠️ Cache error", zap.String("key", key), zap.Error(err))
	}

	logger.Debug("💾 Cache MISS - fetching from DB", zap.String("key", key))
	value, err := load()
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value); err != nil {
		logger.Warn("⚠️ Failed to cache value", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func invalidate(ctx context.Context, c *cache.RedisCache, logger *zap.Logger, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		logger.Warn("⚠️ Failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
		return
	}
	logger.Debug("🗑️ Cache invalidated", zap.Strings("keys", keys))
}

// CachedEventRepository serves single-event reads from Redis.
type CachedEventRepository struct {
	*EventRepository
	cache  *cache.RedisCache
	logger *zap.Logger
}

func NewCachedEventRepository(repo *EventRepository, c *cache.RedisCache, logger *zap.Logger) *CachedEventRepository {
	return &CachedEventRepository{EventRepository: repo, cache: c, logger: logger}
}

// GetByID returns a single event (with caching)
func (r *CachedEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return readThrough(ctx, r.cache, r.logger, eventKey(id), func() (*models.Event, error) {
		return r.EventRepository.GetByID(ctx, id)
	})
}

func (r *CachedEventRepository) Update(ctx context.Context, event *models.Event) error {
	if err := r.EventRepository.Update(ctx, event); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, eventKey(event.ID))
	return nil
}

func (r *CachedEventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error {
	if err := r.EventRepository.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, eventKey(id))
	return nil
}

func (r *CachedEventRepository) SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error {
	if err := r.EventRepository.SetDeleted(ctx, id, at); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, eventKey(id))
	return nil
}

// CachedTicketRepository serves ticket type reads from Redis. Stock counts in the
// cache may lag bookings by up to the TTL; bookings always read Postgres.
type CachedTicketRepository struct {
	*TicketRepository
	cache  *cache.RedisCache
	logger *zap.Logger
}

func NewCachedTicketRepository(repo *TicketRepository, c *cache.RedisCache, logger *zap.Logger) *CachedTicketRepository {
	return &CachedTicketRepository{TicketRepository: repo, cache: c, logger: logger}
}

// GetByID returns a single ticket type (with caching)
func (r *CachedTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	return readThrough(ctx, r.cache, r.logger, ticketKey(id), func() (*models.TicketType, error) {
		return r.TicketRepository.GetByID(ctx, id)
	})
}

// ListByEvent returns an event's ticket types (with caching)
func (r *CachedTicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TicketType, error) {
	return readThrough(ctx, r.cache, r.logger, eventTicketsKey(eventID), func() ([]models.TicketType, error) {
		return r.TicketRepository.ListByEvent(ctx, eventID)
	})
}

func (r *CachedTicketRepository) Create(ctx context.Context, ticket *models.TicketType) error {
	if err := r.TicketRepository.Create(ctx, ticket); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, eventTicketsKey(ticket.EventID))
	return nil
}

func (r *CachedTicketRepository) Update(ctx context.Context, id uuid.UUID, patch models.UpdateTicketTypeRequest) (*models.TicketType, error) {
	ticket, err := r.TicketRepository.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	invalidate(ctx, r.cache, r.logger, ticketKey(id), eventTicketsKey(ticket.EventID))
	return ticket, nil
}

func (r *CachedTicketRepository) SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error {
	if err := r.TicketRepository.SetDeleted(ctx, id, at); err != nil {
		return err
	}
	keys := []string{ticketKey(id)}
	if ticket, err := r.TicketRepository.GetByID(ctx, id); err == nil {
		keys = append(keys, eventTicketsKey(ticket.EventID))
	}
	invalidate(ctx, r.cache, r.logger, keys...)
	return nil
}

func (r *CachedTicketRepository) SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	tickets, err := r.TicketRepository.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := r.TicketRepository.SoftDeleteByEvent(ctx, eventID, at); err != nil {
		return err
	}
	keys := []string{eventTicketsKey(eventID)}
	for _, t := range tickets {
		keys = append(keys, ticketKey(t.ID))
	}
	invalidate(ctx, r.cache, r.logger, keys...)
	return nil
}

// InvalidateStock drops cached stock for ticket types touched by a booking.
func (r *CachedTicketRepository) InvalidateStock(ctx context.Context, items []models.BookingItemEvent) {
	keys := make([]string, 0, 2*len(items))
	seen := make(map[uuid.UUID]bool)
	for _, item := range items {
		keys = append(keys, ticketKey(item.TicketTypeID))
		if !seen[item.EventID] {
			seen[item.EventID] = true
			keys = append(keys, eventTicketsKey(item.EventID))
		}
	}
	invalidate(ctx, r.cache, r.logger, keys...)
}
