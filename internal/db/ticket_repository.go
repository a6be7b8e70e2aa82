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

type TicketRepository struct {
	db *PostgresDB
}

func NewTicketRepository(database *PostgresDB) *TicketRepository {
	return &TicketRepository{db: database}
}

const ticketColumns = `id, event_id, name, price, total_quantity, quantity_available, created_at, updated_at, deleted_at`

func scanTicket(row interface{ Scan(...any) error }) (*models.TicketType, error) {
	var t models.TicketType
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.TotalQuantity, &t.QuantityAvailable,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a ticket type with its full stock available
func (r *TicketRepository) Create(ctx context.Context, ticket *models.TicketType) error {
	query := `
		INSERT INTO ticket_types (id, event_id, name, price, total_quantity, quantity_available)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING quantity_available, created_at, updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, query,
		ticket.ID, ticket.EventID, ticket.Name, ticket.Price, ticket.TotalQuantity,
	).Scan(&ticket.QuantityAvailable, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrTicketDuplicate
		}
		if isForeignKeyViolation(err) {
			return models.ErrEventNotFound
		}
		return fmt.Errorf("failed to create ticket type: %w", err)
	}
	return nil
}

// GetByID returns a ticket type, deleted or not
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	query := `SELECT ` + ticketColumns + ` FROM ticket_types WHERE id = $1`

	t, err := scanTicket(r.db.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return t, nil
}

// ListByEvent returns the live ticket types of an event, cheapest first
func (r *TicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TicketType, error) {
	query := `SELECT ` + ticketColumns + ` FROM ticket_types
		WHERE event_id = $1 AND deleted_at IS NULL
		ORDER BY price ASC, name ASC`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	defer rows.Close()

	tickets := []models.TicketType{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// Update applies a partial patch. A new total keeps the sold count fixed and is
// rejected when it would drop below it; both are evaluated against the row as it is
// at update time so a concurrent booking is never lost.
func (r *TicketRepository) Update(ctx context.Context, id uuid.UUID, patch models.UpdateTicketTypeRequest) (*models.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET name = COALESCE($2, name),
		    price = COALESCE($3::numeric, price),
		    total_quantity = COALESCE($4::int, total_quantity),
		    quantity_available = COALESCE($4::int, total_quantity) - (total_quantity - quantity_available),
		    updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND ($4::int IS NULL OR $4::int >= total_quantity - quantity_available)
		RETURNING ` + ticketColumns

	t, err := scanTicket(r.db.q(ctx).QueryRowContext(ctx, query, id, patch.Name, patch.Price, patch.TotalQuantity))
	if err == nil {
		return t, nil
	}
	if isUniqueViolation(err) {
		return nil, models.ErrTicketDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update ticket type: %w", err)
	}

	// No row matched: either the ticket is gone or the total is too small.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.DeletedAt != nil {
		return nil, models.ErrTicketNotFound
	}
	return nil, models.ErrInvalidTotalQuantity
}

// SetDeleted soft-deletes (at != nil) or restores (at == nil) a ticket type
func (r *TicketRepository) SetDeleted(ctx context.Context, id uuid.UUID, at *time.Time) error {
	query := `UPDATE ticket_types SET deleted_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrTicketDuplicate
		}
		return fmt.Errorf("failed to set ticket type deleted_at: %w", err)
	}
	if affected(result) == 0 {
		return models.ErrTicketNotFound
	}
	return nil
}

// SoftDeleteByEvent marks every live ticket type of an event deleted
func (r *TicketRepository) SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	query := `UPDATE ticket_types SET deleted_at = $2, updated_at = $2 WHERE event_id = $1 AND deleted_at IS NULL`

	if _, err := r.db.q(ctx).ExecContext(ctx, query, eventID, at); err != nil {
		return fmt.Errorf("failed to delete ticket types of event: %w", err)
	}
	return nil
}
