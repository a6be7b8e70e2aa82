package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type bookingFixture struct {
	svc       *BookingService
	store     *fakeBookingStore
	tickets   *fakeTicketStore
	events    *fakeEventStore
	gateway   *fakeGateway
	publisher *fakePublisher
	user      models.User
	event     models.Event
	regular   models.TicketType
	vip       models.TicketType
	free      models.TicketType
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()
	user := models.User{ID: uuid.New(), FirstName: "ada", LastName: "lovelace", Email: "ada@example.com", Role: models.RoleUser}
	event := models.Event{ID: uuid.New(), Name: "gig", DateTime: now.Add(48 * time.Hour), DurationMinutes: 120, Status: models.EventScheduled}
	ticket := func(name, price string, total int) models.TicketType {
		return models.TicketType{
			ID: uuid.New(), EventID: event.ID, Name: name, Price: decimal.RequireFromString(price),
			TotalQuantity: total, QuantityAvailable: total,
		}
	}

	f := &bookingFixture{
		gateway:   &fakeGateway{verification: models.Verification{Status: models.PaymentStatusSuccess}},
		publisher: &fakePublisher{},
		user:      user,
		event:     event,
		regular:   ticket("regular", "2500.50", 10),
		vip:       ticket("vip", "10000", 2),
		free:      ticket("rsvp", "0", 50),
	}
	f.tickets = newFakeTicketStore(f.regular, f.vip, f.free)
	f.events = newFakeEventStore(event)
	f.store = newFakeBookingStore(f.tickets, f.events)
	f.svc = NewBookingService(f.store, newFakeUserStore(user), f.gateway, f.publisher,
		clock.NewFixed(now), "https://example.com/payment/callback", zap.NewNop())
	return f
}

func (f *bookingFixture) available(id uuid.UUID) int {
	return f.tickets.tickets[id].QuantityAvailable
}

func TestBookingService_Create(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("paid booking reserves stock and starts payment", func(t *testing.T) {
		f := newBookingFixture(t, now)

		result, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{
			{TicketTypeID: f.regular.ID, Quantity: 2},
			{TicketTypeID: f.vip.ID, Quantity: 1},
		})
		require.NoError(t, err)

		assert.Equal(t, models.BookingPendingPayment, result.Status)
		assert.True(t, decimal.RequireFromString("15001").Equal(result.TotalAmount))
		assert.Equal(t, msgPaymentPending, result.Message)
		assert.NotEmpty(t, result.PaymentURL)

		assert.Equal(t, 8, f.available(f.regular.ID))
		assert.Equal(t, 1, f.available(f.vip.ID))

		require.Len(t, f.gateway.charges, 1)
		charge := f.gateway.charges[0]
		assert.Equal(t, int64(1500100), charge.AmountMinor)
		assert.Equal(t, result.BookingID.String(), charge.Reference)
		assert.Equal(t, "ada lovelace", charge.Name)
		assert.Equal(t, "https://example.com/payment/callback", charge.CallbackURL)

		stored := f.store.bookings[result.BookingID]
		require.NotNil(t, stored.PaymentRef)
		assert.Len(t, stored.Items, 2)
		assert.Equal(t, []uuid.UUID{result.BookingID}, f.publisher.created)
	})

	t.Run("free booking is confirmed without the gateway", func(t *testing.T) {
		f := newBookingFixture(t, now)

		result, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.free.ID, Quantity: 3}})
		require.NoError(t, err)

		assert.Equal(t, models.BookingConfirmed, result.Status)
		assert.Equal(t, msgConfirmed, result.Message)
		assert.Empty(t, result.PaymentURL)
		assert.Empty(t, f.gateway.charges)
		assert.Equal(t, 47, f.available(f.free.ID))
	})

	t.Run("duplicate ticket ids are merged", func(t *testing.T) {
		f := newBookingFixture(t, now)

		result, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{
			{TicketTypeID: f.vip.ID, Quantity: 1},
			{TicketTypeID: f.vip.ID, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, f.available(f.vip.ID))
		items := f.store.bookings[result.BookingID].Items
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].QuantityBooked)
	})

	t.Run("oversized quantities are rejected before touching stock", func(t *testing.T) {
		tests := []struct {
			name  string
			items []models.BookingItemInput
		}{
			{"single item above cap", []models.BookingItemInput{{Quantity: math.MaxInt}}},
			{"merged sum above cap", []models.BookingItemInput{{Quantity: models.MaxBookingQuantity}, {Quantity: 2}}},
			{"merged sum that would overflow", []models.BookingItemInput{{Quantity: math.MaxInt}, {Quantity: 2}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newBookingFixture(t, now)
				for i := range tt.items {
					tt.items[i].TicketTypeID = f.regular.ID
				}

				_, err := f.svc.Create(ctx, f.user.ID, tt.items)
				assert.ErrorIs(t, err, models.ErrInvalidQuantity)
				assert.Equal(t, 10, f.available(f.regular.ID))
				assert.Empty(t, f.store.bookings)
				assert.Empty(t, f.gateway.charges)
			})
		}
	})

	t.Run("merged quantity above stock is rejected", func(t *testing.T) {
		f := newBookingFixture(t, now)

		_, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{
			{TicketTypeID: f.vip.ID, Quantity: 2},
			{TicketTypeID: f.vip.ID, Quantity: 1},
		})
		assert.ErrorIs(t, err, models.ErrInsufficientStock)
		assert.Equal(t, 2, f.available(f.vip.ID))
		assert.Empty(t, f.store.bookings)
	})

	t.Run("validation errors", func(t *testing.T) {
		f := newBookingFixture(t, now)

		_, err := f.svc.Create(ctx, f.user.ID, nil)
		assert.ErrorIs(t, err, models.ErrEmptyBooking)

		_, err = f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.vip.ID, Quantity: 0}})
		assert.ErrorIs(t, err, models.ErrInvalidQuantity)

		_, err = f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: uuid.New(), Quantity: 1}})
		assert.ErrorIs(t, err, models.ErrTicketNotFound)

		_, err = f.svc.Create(ctx, uuid.New(), []models.BookingItemInput{{TicketTypeID: f.vip.ID, Quantity: 1}})
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		assert.Equal(t, 2, f.available(f.vip.ID))
	})

	t.Run("cancelled event is not bookable", func(t *testing.T) {
		f := newBookingFixture(t, now)
		e := f.events.events[f.event.ID]
		e.Status = models.EventCancelled
		f.events.events[f.event.ID] = e

		_, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.vip.ID, Quantity: 1}})
		assert.ErrorIs(t, err, models.ErrTicketNotFound)
	})

	t.Run("stock taken between check and reserve rolls back", func(t *testing.T) {
		f := newBookingFixture(t, now)
		store := &racingStore{fakeBookingStore: f.store, steal: f.vip.ID}
		f.svc.bookings = store

		_, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{
			{TicketTypeID: f.regular.ID, Quantity: 1},
			{TicketTypeID: f.vip.ID, Quantity: 2},
		})
		assert.ErrorIs(t, err, models.ErrInsufficientStock)
		assert.Empty(t, f.store.bookings)
		assert.Equal(t, 10, f.available(f.regular.ID))
		assert.Empty(t, f.gateway.charges)
	})

	t.Run("payment init failure cancels and releases stock", func(t *testing.T) {
		f := newBookingFixture(t, now)
		f.gateway.initErr = errGatewayDown

		_, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.regular.ID, Quantity: 4}})
		assert.ErrorIs(t, err, models.ErrPaymentInitFailed)

		assert.Equal(t, 10, f.available(f.regular.ID))
		require.Len(t, f.store.bookings, 1)
		for _, b := range f.store.bookings {
			assert.Equal(t, models.BookingCancelled, b.Status)
			assert.Equal(t, models.PaymentFailed, b.PaymentStatus)
		}
		assert.Equal(t, []models.BookingStatus{models.BookingCancelled}, f.publisher.statuses)
	})

	t.Run("publish failure does not fail the booking", func(t *testing.T) {
		f := newBookingFixture(t, now)
		f.publisher.err = errGatewayDown

		_, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.free.ID, Quantity: 1}})
		assert.NoError(t, err)
	})
}

// racingStore empties a ticket type's stock right after the pre-check, the way a
// concurrent booking would.
type racingStore struct {
	*fakeBookingStore
	steal uuid.UUID
}

func (s *racingStore) FindBookableTicketTypes(ctx context.Context, ids []uuid.UUID) ([]models.TicketType, error) {
	found, err := s.fakeBookingStore.FindBookableTicketTypes(ctx, ids)
	t := s.tickets.tickets[s.steal]
	t.QuantityAvailable = 0
	s.tickets.tickets[s.steal] = t
	return found, err
}

func pendingBooking(t *testing.T, f *bookingFixture) uuid.UUID {
	t.Helper()
	result, err := f.svc.Create(context.Background(), f.user.ID, []models.BookingItemInput{{TicketTypeID: f.regular.ID, Quantity: 2}})
	require.NoError(t, err)
	return result.BookingID
}

func TestBookingService_VerifyPayment(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("success confirms once", func(t *testing.T) {
		f := newBookingFixture(t, now)
		id := pendingBooking(t, f)
		f.gateway.verification.AmountMinor = 500100

		ok, err := f.svc.VerifyPayment(ctx, id.String())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, models.BookingConfirmed, f.store.bookings[id].Status)
		assert.Equal(t, models.PaymentSuccess, f.store.bookings[id].PaymentStatus)
		assert.Equal(t, []models.BookingStatus{models.BookingConfirmed}, f.publisher.statuses)

		_, err = f.svc.VerifyPayment(ctx, id.String())
		assert.ErrorIs(t, err, models.ErrBookingNotPending)
	})

	t.Run("failed charge marks payment failed", func(t *testing.T) {
		f := newBookingFixture(t, now)
		id := pendingBooking(t, f)
		f.gateway.verification = models.Verification{Status: "abandoned"}

		ok, err := f.svc.VerifyPayment(ctx, id.String())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, models.BookingPendingPayment, f.store.bookings[id].Status)
		assert.Equal(t, models.PaymentFailed, f.store.bookings[id].PaymentStatus)
	})

	t.Run("amount mismatch is not a success", func(t *testing.T) {
		f := newBookingFixture(t, now)
		id := pendingBooking(t, f)
		f.gateway.verification.AmountMinor = 100

		ok, err := f.svc.VerifyPayment(ctx, id.String())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, models.BookingPendingPayment, f.store.bookings[id].Status)
	})

	t.Run("gateway error", func(t *testing.T) {
		f := newBookingFixture(t, now)
		id := pendingBooking(t, f)
		f.gateway.verifyErr = errGatewayDown

		_, err := f.svc.VerifyPayment(ctx, id.String())
		assert.ErrorIs(t, err, models.ErrPaymentVerifyFailed)
	})

	t.Run("booking settled by a concurrent request", func(t *testing.T) {
		tests := []struct {
			name    string
			settled models.BookingStatus
			want    bool
		}{
			{"confirmed elsewhere", models.BookingConfirmed, true},
			{"cancelled elsewhere", models.BookingCancelled, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newBookingFixture(t, now)
				id := pendingBooking(t, f)
				f.gateway.verification.AmountMinor = 500100
				f.svc.bookings = &settledElsewhereStore{fakeBookingStore: f.store, status: tt.settled}

				ok, err := f.svc.VerifyPayment(ctx, id.String())
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
				assert.Equal(t, tt.settled, f.store.bookings[id].Status)
				assert.Empty(t, f.publisher.statuses, "only the request that settled it publishes")
			})
		}
	})

	t.Run("unknown references", func(t *testing.T) {
		f := newBookingFixture(t, now)

		_, err := f.svc.VerifyPayment(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, models.ErrBookingNotFound)

		_, err = f.svc.VerifyPayment(ctx, uuid.NewString())
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
	})

	t.Run("booking without payment reference", func(t *testing.T) {
		f := newBookingFixture(t, now)
		result, err := f.svc.Create(ctx, f.user.ID, []models.BookingItemInput{{TicketTypeID: f.free.ID, Quantity: 1}})
		require.NoError(t, err)

		_, err = f.svc.VerifyPayment(ctx, result.BookingID.String())
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
	})
}

func TestBookingService_HandleWebhook(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newBookingFixture(t, now)
	id := pendingBooking(t, f)
	f.gateway.verification.AmountMinor = 500100

	hook := models.PaymentWebhook{Event: "transfer.success"}
	require.NoError(t, f.svc.HandleWebhook(ctx, hook))
	assert.Empty(t, f.gateway.verified)

	hook.Event = "charge.success"
	hook.Data.Reference = id.String()
	require.NoError(t, f.svc.HandleWebhook(ctx, hook))
	assert.Equal(t, models.BookingConfirmed, f.store.bookings[id].Status)

	// redelivery of a settled booking is acknowledged
	require.NoError(t, f.svc.HandleWebhook(ctx, hook))
}

func TestBookingService_Get(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newBookingFixture(t, now)
	id := pendingBooking(t, f)

	got, err := f.svc.Get(ctx, id, f.user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = f.svc.Get(ctx, id, uuid.New(), false)
	assert.ErrorIs(t, err, models.ErrBookingNotFound)

	_, err = f.svc.Get(ctx, id, uuid.New(), true)
	assert.NoError(t, err)

	page, err := f.svc.ListForUser(ctx, f.user.ID, models.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.False(t, page.Meta.HasMore)
}

func TestBookingService_Reconcile(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	setup := func(t *testing.T, age time.Duration) (*bookingFixture, uuid.UUID) {
		f := newBookingFixture(t, created)
		id := pendingBooking(t, f)
		b := f.store.bookings[id]
		b.CreatedAt = created
		f.store.bookings[id] = b
		f.svc.clock = clock.NewFixed(created.Add(age))
		return f, id
	}

	t.Run("paid booking is confirmed", func(t *testing.T) {
		f, id := setup(t, 5*time.Minute)
		f.gateway.verification.AmountMinor = 500100

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ReconcileStats{Checked: 1, Confirmed: 1}, stats)
		assert.Equal(t, models.BookingConfirmed, f.store.bookings[id].Status)
	})

	t.Run("unpaid booking inside the window is kept", func(t *testing.T) {
		f, id := setup(t, 5*time.Minute)
		f.gateway.verification = models.Verification{Status: "abandoned"}

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ReconcileStats{Checked: 1}, stats)
		assert.Equal(t, models.BookingPendingPayment, f.store.bookings[id].Status)
		assert.Equal(t, 8, f.available(f.regular.ID))
	})

	t.Run("stale unpaid booking expires and releases stock", func(t *testing.T) {
		f, id := setup(t, time.Hour)
		f.gateway.verification = models.Verification{Status: "abandoned"}

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ReconcileStats{Checked: 1, Expired: 1}, stats)
		assert.Equal(t, models.BookingCancelled, f.store.bookings[id].Status)
		assert.Equal(t, 10, f.available(f.regular.ID))
	})

	t.Run("gateway errors never expire a booking", func(t *testing.T) {
		f, id := setup(t, time.Hour)
		f.gateway.verifyErr = errGatewayDown

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ReconcileStats{Checked: 1}, stats)
		assert.Equal(t, models.BookingPendingPayment, f.store.bookings[id].Status)
	})

	t.Run("failing bookings do not starve later ones", func(t *testing.T) {
		now := created.Add(48 * time.Hour)
		f := newBookingFixture(t, now)
		f.gateway.verification = models.Verification{Status: "abandoned"}
		f.gateway.failRefs = map[string]bool{}

		for i := 0; i < reconcileBatchSize+5; i++ {
			ref := uuid.NewString()
			f.gateway.failRefs[ref] = true
			id := uuid.New()
			f.store.bookings[id] = models.Booking{
				ID:            id,
				UserID:        f.user.ID,
				Status:        models.BookingPendingPayment,
				PaymentStatus: models.PaymentPending,
				TotalAmount:   decimal.NewFromInt(100),
				PaymentRef:    &ref,
				CreatedAt:     created,
			}
		}

		id := pendingBooking(t, f)
		b := f.store.bookings[id]
		b.CreatedAt = now.Add(-2 * time.Hour)
		f.store.bookings[id] = b
		f.svc.clock = clock.NewFixed(now)

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, ReconcileStats{Checked: reconcileBatchSize + 6, Expired: 1}, stats)
		assert.Equal(t, models.BookingCancelled, f.store.bookings[id].Status)
		assert.Equal(t, 10, f.available(f.regular.ID))
		assert.Equal(t, 2, f.store.listPendingCalls)
	})

	t.Run("fresh bookings are not checked", func(t *testing.T) {
		f, _ := setup(t, time.Minute)

		stats, err := f.svc.Reconcile(ctx, 2*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Zero(t, stats.Checked)
		assert.Empty(t, f.gateway.verified)
	})
}
