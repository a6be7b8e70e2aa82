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

type VenueRepository struct {
	db *PostgresDB
}

func NewVenueRepository(database *PostgresDB) *VenueRepository {
	return &VenueRepository{db: database}
}

const venueColumns = `id, name, address, city, capacity, created_at, updated_at, deleted_at`

func scanVenue(row interface{ Scan(...any) error }) (*models.Venue, error) {
	var v models.Venue
	if err := row.Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a new venue
func (r *VenueRepository) Create(ctx context.Context, venue *models.Venue) error {
	query := `
		INSERT INTO venues (id, name, address, city, capacity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, query,
		venue.ID, venue.Name, venue.Address, venue.City, venue.Capacity,
	).Scan(&venue.CreatedAt, &venue.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrVenueAlreadyExists
		}
		return fmt.Errorf("failed to create venue: %w", err)
	}
	return nil
}

// GetByID returns a non-deleted venue
func (r *VenueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1 AND deleted_at IS NULL`

	v, err := scanVenue(r.db.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return v, nil
}

// Update writes all editable venue fields
func (r *VenueRepository) Update(ctx context.Context, venue *models.Venue) error {
	query := `
		UPDATE venues
		SET name = $2, address = $3, city = $4, capacity = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, query,
		venue.ID, venue.Name, venue.Address, venue.City, venue.Capacity,
	).Scan(&venue.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrVenueNotFound
		}
		if isUniqueViolation(err) {
			return models.ErrVenueAlreadyExists
		}
		return fmt.Errorf("failed to update venue: %w", err)
	}
	return nil
}

// SoftDelete marks a venue deleted
func (r *VenueRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE venues SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete venue: %w", err)
	}
	if affected(result) == 0 {
		return models.ErrVenueNotFound
	}
	return nil
}

// List returns a page of non-deleted venues, newest id first
func (r *VenueRepository) List(ctx context.Context, page models.PageRequest) ([]models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues
		WHERE deleted_at IS NULL AND ($1::uuid IS NULL OR id < $1::uuid)
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, page.Cursor, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}
