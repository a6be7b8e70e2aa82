package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type EventRepository struct {
	db *PostgresDB
}

func NewEventRepository(database *PostgresDB) *EventRepository {
	return &EventRepository{db: database}
}

const eventColumns = `id, venue_id, name, description, date_time, duration_minutes, status, created_at, updated_at, deleted_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.VenueID, &e.Name, &e.Description, &e.DateTime, &e.DurationMinutes,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, venue_id, name, description, date_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, query,
		event.ID, event.VenueID, event.Name, event.Description, event.DateTime, event.DurationMinutes, event.Status,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrVenueNotFound
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID returns an event, deleted or not
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.db.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// List returns a page of non-deleted events, newest id first
func (r *EventRepository) List(ctx context.Context, page models.PageRequest) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE deleted_at IS NULL AND ($1::uuid IS NULL OR id < $1::uuid)
		ORDER BY id DESC
		LIMIT $2`
	return r.queryEvents(ctx, query, page.Cursor, page.Limit)
}

// ListByVenue returns a page of a venue's events in start order. The cursor is the
// id of the last event of the previous page.
func (r *EventRepository) ListByVenue(ctx context.Context, venueID uuid.UUID, page models.PageRequest) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.venue_id = $1 AND e.deleted_at IS NULL
		  AND ($2::uuid IS NULL OR (e.date_time, e.id) > (
		      SELECT c.date_time, c.id FROM events c WHERE c.id = $2::uuid))
		ORDER BY e.date_time ASC, e.id ASC
		LIMIT $3`
	return r.queryEvents(ctx, query, venueID, page.Cursor, page.Limit)
}

// Update writes all editable event fields
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET venue_id = $2, name = $3, description = $4, date_time = $5, duration_minutes = $6,
		    status = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, query,
		event.ID, event.VenueID, event.Name, event.Description, event.DateTime, event.DurationMinutes, event.Status,
	).Scan(&event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrEventNotFound
		}
		if isForeignKeyViolation(err) {
			return models.ErrVenueNotFound
		}
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// UpdateStatus persists a derived or explicit status change
func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error {
	query := `UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if affected(result) == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// SetDeleted soft-deletes (at != nil) or restores (at == nil) an event
func (r *EventRepository) SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error {
	query := `UPDATE events SET deleted_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to set event deleted_at: %w", err)
	}
	if affected(result) == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// HasConflict reports whether a live event with the same name at the same venue
// overlaps [Start, End).
func (r *EventRepository) HasConflict(ctx context.Context, c models.ConflictQuery) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE deleted_at IS NULL
			  AND venue_id = $1
			  AND name = $2
			  AND date_time < $4
			  AND date_time + duration_minutes * INTERVAL '1 minute' > $3
			  AND ($5::uuid IS NULL OR id <> $5::uuid)
		)
	`
	var exists bool
	if err := r.db.q(ctx).QueryRowContext(ctx, query, c.VenueID, c.Name, c.Start, c.End, c.ExcludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check event conflict: %w", err)
	}
	return exists, nil
}
