package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type BookingRepository struct {
	db *PostgresDB
}

func NewBookingRepository(database *PostgresDB) *BookingRepository {
	return &BookingRepository{db: database}
}

const bookingColumns = `id, user_id, status, payment_status, total_amount, payment_ref, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.Status, &b.PaymentStatus, &b.TotalAmount, &b.PaymentRef,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// WithTx runs fn in one transaction; every repository call made with the ctx it
// receives joins that transaction.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// FindBookableTicketTypes returns the requested ticket types that are live and belong
// to a live, non-cancelled event. Unknown ids are simply absent from the result.
func (r *BookingRepository) FindBookableTicketTypes(ctx context.Context, ids []uuid.UUID) ([]models.TicketType, error) {
	query := `
		SELECT t.id, t.event_id, t.name, t.price, t.total_quantity, t.quantity_available,
		       t.created_at, t.updated_at, t.deleted_at
		FROM ticket_types t
		JOIN events e ON e.id = t.event_id
		WHERE t.id = ANY($1::uuid[])
		  AND t.deleted_at IS NULL
		  AND e.deleted_at IS NULL
		  AND e.status <> 'CANCELLED'
		ORDER BY t.id
	`
	rows, err := r.db.q(ctx).QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	defer rows.Close()

	var tickets []models.TicketType
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// Create inserts a booking with its items
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	bookingQuery := `
		INSERT INTO bookings (id, user_id, status, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.q(ctx).QueryRowContext(ctx, bookingQuery,
		booking.ID, booking.UserID, booking.Status, booking.PaymentStatus, booking.TotalAmount,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	itemQuery := `
		INSERT INTO booking_items (id, booking_id, ticket_type_id, quantity_booked, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range booking.Items {
		item := &booking.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.BookingID = booking.ID
		_, err := r.db.q(ctx).ExecContext(ctx, itemQuery,
			item.ID, item.BookingID, item.TicketTypeID, item.QuantityBooked, item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking item: %w", err)
		}
	}
	return nil
}

// ReserveStock takes quantity tickets out of stock. It reports false, changing
// nothing, when the ticket type is gone or has fewer than quantity left.
func (r *BookingRepository) ReserveStock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE ticket_types
		SET quantity_available = quantity_available - $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND quantity_available >= $2
	`
	result, err := r.db.q(ctx).ExecContext(ctx, query, ticketTypeID, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return affected(result) == 1, nil
}

// ReleaseStock returns quantity tickets to stock
func (r *BookingRepository) ReleaseStock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	query := `
		UPDATE ticket_types
		SET quantity_available = quantity_available + $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.q(ctx).ExecContext(ctx, query, ticketTypeID, quantity); err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return nil
}

// SetPaymentRef stores the gateway reference of a booking
func (r *BookingRepository) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `UPDATE bookings SET payment_ref = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.q(ctx).ExecContext(ctx, query, id, ref)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	if affected(result) == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// GetByID returns a booking with its items
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	bookings := []models.Booking{*booking}
	if err := r.attachItems(ctx, bookings); err != nil {
		return nil, err
	}
	return &bookings[0], nil
}

// ListByUser returns a page of a user's bookings, newest id first
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE user_id = $1 AND ($2::uuid IS NULL OR id < $2::uuid)
		ORDER BY id DESC
		LIMIT $3`
	return r.queryBookings(ctx, query, userID, page.Cursor, page.Limit)
}

// ListPending returns up to limit bookings still awaiting payment that were created
// before olderThan, ordered by (created_at, id) and starting after the cursor.
func (r *BookingRepository) ListPending(ctx context.Context, olderThan time.Time, after *models.PendingCursor, limit int) ([]models.Booking, error) {
	var afterAt *time.Time
	var afterID *uuid.UUID
	if after != nil {
		afterAt, afterID = &after.CreatedAt, &after.ID
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'PENDING_PAYMENT' AND created_at < $1
		AND ($2::timestamptz IS NULL OR (created_at, id) > ($2::timestamptz, $3::uuid))
		ORDER BY created_at ASC, id ASC
		LIMIT $4`
	return r.queryBookings(ctx, query, olderThan, afterAt, afterID, limit)
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// attachItems loads the items of all bookings in one query.
func (r *BookingRepository) attachItems(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(bookings))
	index := make(map[uuid.UUID]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		index[b.ID] = i
		bookings[i].Items = []models.BookingItem{}
	}

	query := `
		SELECT i.id, i.booking_id, i.ticket_type_id, t.event_id, i.quantity_booked, i.unit_price, i.subtotal
		FROM booking_items i
		JOIN ticket_types t ON t.id = i.ticket_type_id
		WHERE i.booking_id = ANY($1::uuid[])
		ORDER BY i.ticket_type_id
	`
	rows, err := r.db.q(ctx).QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to query booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.BookingItem
		err := rows.Scan(&item.ID, &item.BookingID, &item.TicketTypeID, &item.EventID,
			&item.QuantityBooked, &item.UnitPrice, &item.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to scan booking item: %w", err)
		}
		i := index[item.BookingID]
		bookings[i].Items = append(bookings[i].Items, item)
	}
	return rows.Err()
}

// MarkConfirmed moves a pending booking to CONFIRMED/SUCCESS. It reports false when
// the booking was no longer pending.
func (r *BookingRepository) MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'CONFIRMED', payment_status = 'SUCCESS', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING_PAYMENT'
	`
	result, err := r.db.q(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}
	return affected(result) == 1, nil
}

// MarkPaymentFailed records a failed verification on a pending booking
func (r *BookingRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET payment_status = 'FAILED', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING_PAYMENT'
	`
	if _, err := r.db.q(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// Cancel moves a pending booking to CANCELLED. It reports false when the booking was
// no longer pending, in which case its stock must not be released.
func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID, paymentStatus models.PaymentStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'CANCELLED', payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING_PAYMENT'
	`
	result, err := r.db.q(ctx).ExecContext(ctx, query, id, paymentStatus)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return affected(result) == 1, nil
}
