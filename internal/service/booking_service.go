package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

const (
	msgPaymentPending = "Booking created. Complete payment to confirm."
	msgConfirmed      = "Booking created successfully."

	reconcileBatchSize = 100
)

type BookingService struct {
	bookings    BookingStore
	users       UserStore
	gateway     Gateway
	publisher   EventPublisher
	clock       clock.Clock
	callbackURL string
	logger      *zap.Logger
}

func NewBookingService(
	bookings BookingStore,
	users UserStore,
	gateway Gateway,
	publisher EventPublisher,
	clk clock.Clock,
	callbackURL string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		users:       users,
		gateway:     gateway,
		publisher:   publisher,
		clock:       clk,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// mergeItems sums quantities per ticket type and orders the result by id, the
// order stock is locked in.
func mergeItems(items []models.BookingItemInput) ([]models.BookingItemInput, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyBooking
	}

	totals := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > models.MaxBookingQuantity {
			return nil, models.ErrInvalidQuantity
		}
		if totals[item.TicketTypeID] > models.MaxBookingQuantity-item.Quantity {
			return nil, models.ErrInvalidQuantity
		}
		totals[item.TicketTypeID] += item.Quantity
	}

	merged := make([]models.BookingItemInput, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, models.BookingItemInput{TicketTypeID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].TicketTypeID[:], merged[j].TicketTypeID[:]) < 0
	})
	return merged, nil
}

// Create reserves stock for the items and, for paid bookings, starts the payment.
func (s *BookingService) Create(ctx context.Context, userID uuid.UUID, items []models.BookingItemInput) (*models.BookingResult, error) {
	merged, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(merged))
	for i, item := range merged {
		ids[i] = item.TicketTypeID
	}
	tickets, err := s.bookings.FindBookableTicketTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.TicketType, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}

	booking := &models.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: decimal.Zero,
	}
	for _, item := range merged {
		ticket, ok := byID[item.TicketTypeID]
		if !ok {
			return nil, models.ErrTicketNotFound
		}
		if ticket.QuantityAvailable < item.Quantity {
			return nil, fmt.Errorf("%w for %q", models.ErrInsufficientStock, ticket.Name)
		}
		subtotal := ticket.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		booking.Items = append(booking.Items, models.BookingItem{
			ID:             uuid.New(),
			BookingID:      booking.ID,
			TicketTypeID:   ticket.ID,
			EventID:        ticket.EventID,
			QuantityBooked: item.Quantity,
			UnitPrice:      ticket.Price,
			Subtotal:       subtotal,
		})
		booking.TotalAmount = booking.TotalAmount.Add(subtotal)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	free := booking.TotalAmount.IsZero()
	if free {
		booking.Status = models.BookingConfirmed
		booking.PaymentStatus = models.PaymentSuccess
	} else {
		booking.Status = models.BookingPendingPayment
		booking.PaymentStatus = models.PaymentPending
	}

	err = s.bookings.WithTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}
		for _, item := range booking.Items {
			ok, err := s.bookings.ReserveStock(ctx, item.TicketTypeID, item.QuantityBooked)
			if err != nil {
				return err
			}
			if !ok {
				return models.ErrInsufficientStock
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("🎟️ Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("total", booking.TotalAmount.StringFixed(2)),
		zap.String("status", string(booking.Status)))
	s.publish(ctx, booking, s.publisher.PublishBookingCreated)

	result := &models.BookingResult{
		BookingID:   booking.ID,
		TotalAmount: booking.TotalAmount,
		Status:      booking.Status,
	}
	if free {
		result.Message = msgConfirmed
		return result, nil
	}

	authorization, err := s.gateway.Initialize(ctx, models.ChargeRequest{
		Reference:   booking.ID.String(),
		AmountMinor: models.ToMinorUnits(booking.TotalAmount),
		Email:       user.Email,
		Name:        user.FullName(),
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		s.logger.Error("❌ Payment initialization failed",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		if cerr := s.cancel(ctx, booking, models.PaymentFailed); cerr != nil {
			s.logger.Error("❌ Failed to release stock after payment error",
				zap.String("booking_id", booking.ID.String()), zap.Error(cerr))
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentInitFailed, err)
	}

	if err := s.bookings.SetPaymentRef(ctx, booking.ID, authorization.Reference); err != nil {
		return nil, err
	}

	result.Message = msgPaymentPending
	result.PaymentURL = authorization.URL
	return result, nil
}

// cancel moves a pending booking to CANCELLED and returns its stock, atomically.
// A booking that is no longer pending is left alone.
func (s *BookingService) cancel(ctx context.Context, booking *models.Booking, paymentStatus models.PaymentStatus) error {
	var cancelled bool
	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.bookings.Cancel(ctx, booking.ID, paymentStatus)
		if err != nil || !ok {
			return err
		}
		for _, item := range booking.Items {
			if err := s.bookings.ReleaseStock(ctx, item.TicketTypeID, item.QuantityBooked); err != nil {
				return err
			}
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return err
	}

	if cancelled {
		booking.Status = models.BookingCancelled
		booking.PaymentStatus = paymentStatus
		s.logger.Info("🚫 Booking cancelled, stock released", zap.String("booking_id", booking.ID.String()))
		s.publish(ctx, booking, s.publisher.PublishBookingStatus)
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, booking *models.Booking, fn func(context.Context, *models.Booking) error) {
	if err := fn(ctx, booking); err != nil {
		s.logger.Warn("⚠️ Failed to publish booking event",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
	}
}

// VerifyPayment asks the gateway about the booking whose id is reference and
// confirms it on success. It reports whether the booking is now confirmed.
func (s *BookingService) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	id, err := uuid.Parse(reference)
	if err != nil {
		return false, models.ErrBookingNotFound
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if booking.PaymentRef == nil {
		return false, models.ErrBookingNotFound
	}
	if booking.Status != models.BookingPendingPayment {
		return false, models.ErrBookingNotPending
	}

	return s.settle(ctx, booking)
}

// settle applies the gateway's verdict to a pending booking.
func (s *BookingService) settle(ctx context.Context, booking *models.Booking) (bool, error) {
	verification, err := s.gateway.Verify(ctx, *booking.PaymentRef)
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrPaymentVerifyFailed, err)
	}

	expected := models.ToMinorUnits(booking.TotalAmount)
	if !verification.Succeeded() || verification.AmountMinor != expected {
		if verification.Succeeded() {
			s.logger.Warn("⚠️ Paid amount does not match booking total",
				zap.String("booking_id", booking.ID.String()),
				zap.Int64("paid", verification.AmountMinor),
				zap.Int64("expected", expected))
		}
		if err := s.bookings.MarkPaymentFailed(ctx, booking.ID); err != nil {
			return false, err
		}
		booking.PaymentStatus = models.PaymentFailed
		return false, nil
	}

	confirmed, err := s.bookings.MarkConfirmed(ctx, booking.ID)
	if err != nil {
		return false, err
	}
	if !confirmed {
		// Someone else settled it first.
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return false, err
		}
		return current.Status == models.BookingConfirmed, nil
	}

	booking.Status = models.BookingConfirmed
	booking.PaymentStatus = models.PaymentSuccess
	s.logger.Info("✅ Booking confirmed", zap.String("booking_id", booking.ID.String()))
	s.publish(ctx, booking, s.publisher.PublishBookingStatus)
	return true, nil
}

// HandleWebhook reacts to gateway notifications. Only charge.success matters;
// settled or unknown bookings are ignored so the gateway stops retrying.
func (s *BookingService) HandleWebhook(ctx context.Context, hook models.PaymentWebhook) error {
	if hook.Event != "charge.success" {
		return nil
	}

	_, err := s.VerifyPayment(ctx, hook.Data.Reference)
	if errors.Is(err, models.ErrBookingNotFound) || errors.Is(err, models.ErrBookingNotPending) {
		s.logger.Debug("webhook for settled or unknown booking", zap.String("reference", hook.Data.Reference))
		return nil
	}
	return err
}

// ListForUser returns one page of the caller's bookings.
func (s *BookingService) ListForUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) (models.Page[models.Booking], error) {
	page = page.Normalize()
	bookings, err := s.bookings.ListByUser(ctx, userID, page)
	if err != nil {
		return models.Page[models.Booking]{}, err
	}
	return models.NewPage(bookings, page.Limit, func(b models.Booking) uuid.UUID { return b.ID }), nil
}

// Get returns a booking owned by viewer, or any booking when readAny is set.
func (s *BookingService) Get(ctx context.Context, id, viewer uuid.UUID, readAny bool) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != viewer && !readAny {
		return nil, models.ErrBookingNotFound
	}
	return booking, nil
}

// ReconcileStats counts what one reconciliation pass did.
type ReconcileStats struct {
	Checked   int
	Confirmed int
	Expired   int
}

// Reconcile re-verifies bookings pending longer than verifyAfter and cancels those
// still unpaid after expireAfter, returning their stock. It walks the whole pending
// set in batches, so bookings the gateway keeps failing on cannot starve newer ones.
func (s *BookingService) Reconcile(ctx context.Context, verifyAfter, expireAfter time.Duration) (ReconcileStats, error) {
	var stats ReconcileStats
	now := s.clock.Now()
	cutoff := now.Add(-verifyAfter)
	expireBefore := now.Add(-expireAfter)

	var after *models.PendingCursor
	for {
		pending, err := s.bookings.ListPending(ctx, cutoff, after, reconcileBatchSize)
		if err != nil {
			return stats, err
		}

		for i := range pending {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Checked++
			s.reconcileOne(ctx, &pending[i], expireBefore, &stats)
		}

		if len(pending) < reconcileBatchSize {
			return stats, nil
		}
		last := pending[len(pending)-1]
		after = &models.PendingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

func (s *BookingService) reconcileOne(ctx context.Context, booking *models.Booking, expireBefore time.Time, stats *ReconcileStats) {
	if booking.PaymentRef != nil {
		confirmed, err := s.settle(ctx, booking)
		if err != nil {
			s.logger.Warn("⚠️ Reconcile verification failed",
				zap.String("booking_id", booking.ID.String()), zap.Error(err))
			return
		}
		if confirmed {
			stats.Confirmed++
			return
		}
	}

	if booking.CreatedAt.After(expireBefore) {
		return
	}
	if err := s.cancel(ctx, booking, models.PaymentFailed); err != nil {
		s.logger.Error("❌ Failed to expire booking",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return
	}
	if booking.Status == models.BookingCancelled {
		stats.Expired++
	}
}
