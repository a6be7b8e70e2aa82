package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[uuid.UUID]models.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.ErrUserAlreadyExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *fakeUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.ErrUserNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *fakeUserStore) List(_ context.Context, page models.PageRequest) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

type fakeVenueStore struct {
	venues map[uuid.UUID]models.Venue
}

func newFakeVenueStore(venues ...models.Venue) *fakeVenueStore {
	s := &fakeVenueStore{venues: map[uuid.UUID]models.Venue{}}
	for _, v := range venues {
		s.venues[v.ID] = v
	}
	return s
}

func (s *fakeVenueStore) nameTaken(name string, except uuid.UUID) bool {
	for _, v := range s.venues {
		if v.DeletedAt == nil && v.Name == name && v.ID != except {
			return true
		}
	}
	return false
}

func (s *fakeVenueStore) Create(_ context.Context, venue *models.Venue) error {
	if s.nameTaken(venue.Name, venue.ID) {
		return models.ErrVenueAlreadyExists
	}
	s.venues[venue.ID] = *venue
	return nil
}

func (s *fakeVenueStore) GetByID(_ context.Context, id uuid.UUID) (*models.Venue, error) {
	v, ok := s.venues[id]
	if !ok || v.DeletedAt != nil {
		return nil, models.ErrVenueNotFound
	}
	return &v, nil
}

func (s *fakeVenueStore) Update(_ context.Context, venue *models.Venue) error {
	if s.nameTaken(venue.Name, venue.ID) {
		return models.ErrVenueAlreadyExists
	}
	s.venues[venue.ID] = *venue
	return nil
}

func (s *fakeVenueStore) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	v, ok := s.venues[id]
	if !ok || v.DeletedAt != nil {
		return models.ErrVenueNotFound
	}
	v.DeletedAt = &at
	s.venues[id] = v
	return nil
}

func (s *fakeVenueStore) List(_ context.Context, page models.PageRequest) ([]models.Venue, error) {
	var out []models.Venue
	for _, v := range s.venues {
		if v.DeletedAt == nil {
			out = append(out, v)
		}
	}
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

type fakeEventStore struct {
	events        map[uuid.UUID]models.Event
	statusUpdates int
}

func newFakeEventStore(events ...models.Event) *fakeEventStore {
	s := &fakeEventStore{events: map[uuid.UUID]models.Event{}}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) Create(_ context.Context, event *models.Event) error {
	s.events[event.ID] = *event
	return nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return &e, nil
}

func (s *fakeEventStore) live() []models.Event {
	var out []models.Event
	for _, e := range s.events {
		if e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeEventStore) List(_ context.Context, page models.PageRequest) ([]models.Event, error) {
	out := s.live()
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (s *fakeEventStore) ListByVenue(_ context.Context, venueID uuid.UUID, page models.PageRequest) ([]models.Event, error) {
	var out []models.Event
	for _, e := range s.live() {
		if e.VenueID == venueID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (s *fakeEventStore) Update(_ context.Context, event *models.Event) error {
	if _, ok := s.events[event.ID]; !ok {
		return models.ErrEventNotFound
	}
	s.events[event.ID] = *event
	return nil
}

func (s *fakeEventStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.EventStatus) error {
	e, ok := s.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	e.Status = status
	s.events[id] = e
	s.statusUpdates++
	return nil
}

func (s *fakeEventStore) SetDeleted(_ context.Context, id uuid.UUID, at *time.Time) error {
	e, ok := s.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	e.DeletedAt = at
	s.events[id] = e
	return nil
}

func (s *fakeEventStore) HasConflict(_ context.Context, q models.ConflictQuery) (bool, error) {
	for _, e := range s.live() {
		if q.ExcludeID != nil && e.ID == *q.ExcludeID {
			continue
		}
		if e.VenueID == q.VenueID && e.Name == q.Name && e.DateTime.Before(q.End) && e.EndTime().After(q.Start) {
			return true, nil
		}
	}
	return false, nil
}

type fakeTicketStore struct {
	tickets map[uuid.UUID]models.TicketType
}

func newFakeTicketStore(tickets ...models.TicketType) *fakeTicketStore {
	s := &fakeTicketStore{tickets: map[uuid.UUID]models.TicketType{}}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *fakeTicketStore) Create(_ context.Context, ticket *models.TicketType) error {
	for _, t := range s.tickets {
		if t.DeletedAt == nil && t.EventID == ticket.EventID && t.Name == ticket.Name {
			return models.ErrTicketDuplicate
		}
	}
	ticket.QuantityAvailable = ticket.TotalQuantity
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (s *fakeTicketStore) GetByID(_ context.Context, id uuid.UUID) (*models.TicketType, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	return &t, nil
}

func (s *fakeTicketStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.TicketType, error) {
	out := []models.TicketType{}
	for _, t := range s.tickets {
		if t.EventID == eventID && t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTicketStore) Update(_ context.Context, id uuid.UUID, patch models.UpdateTicketTypeRequest) (*models.TicketType, error) {
	t, ok := s.tickets[id]
	if !ok || t.DeletedAt != nil {
		return nil, models.ErrTicketNotFound
	}
	if patch.TotalQuantity != nil {
		sold := t.Sold()
		if *patch.TotalQuantity < sold {
			return nil, models.ErrInvalidTotalQuantity
		}
		t.TotalQuantity = *patch.TotalQuantity
		t.QuantityAvailable = t.TotalQuantity - sold
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Price != nil {
		t.Price = *patch.Price
	}
	s.tickets[id] = t
	return &t, nil
}

type countingTicketStore struct {
	*fakeTicketStore
	updates int
}

func (s *countingTicketStore) Update(ctx context.Context, id uuid.UUID, patch models.UpdateTicketTypeRequest) (*models.TicketType, error) {
	s.updates++
	return s.fakeTicketStore.Update(ctx, id, patch)
}

func (s *fakeTicketStore) SetDeleted(_ context.Context, id uuid.UUID, at *time.Time) error {
	t, ok := s.tickets[id]
	if !ok {
		return models.ErrTicketNotFound
	}
	t.DeletedAt = at
	s.tickets[id] = t
	return nil
}

func (s *fakeTicketStore) SoftDeleteByEvent(_ context.Context, eventID uuid.UUID, at time.Time) error {
	for id, t := range s.tickets {
		if t.EventID == eventID && t.DeletedAt == nil {
			t.DeletedAt = &at
			s.tickets[id] = t
		}
	}
	return nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakeBookingStore shares the ticket map with a fakeTicketStore and rolls back
// stock and bookings when the transaction function fails.
type fakeBookingStore struct {
	tickets  *fakeTicketStore
	events   *fakeEventStore
	bookings map[uuid.UUID]models.Booking

	listPendingCalls int
}

func newFakeBookingStore(tickets *fakeTicketStore, events *fakeEventStore) *fakeBookingStore {
	return &fakeBookingStore{tickets: tickets, events: events, bookings: map[uuid.UUID]models.Booking{}}
}

func (s *fakeBookingStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ticketSnapshot := make(map[uuid.UUID]models.TicketType, len(s.tickets.tickets))
	for k, v := range s.tickets.tickets {
		ticketSnapshot[k] = v
	}
	bookingSnapshot := make(map[uuid.UUID]models.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookingSnapshot[k] = v
	}

	if err := fn(ctx); err != nil {
		s.tickets.tickets = ticketSnapshot
		s.bookings = bookingSnapshot
		return err
	}
	return nil
}

func (s *fakeBookingStore) FindBookableTicketTypes(_ context.Context, ids []uuid.UUID) ([]models.TicketType, error) {
	var out []models.TicketType
	for _, id := range ids {
		t, ok := s.tickets.tickets[id]
		if !ok || t.DeletedAt != nil {
			continue
		}
		if e, ok := s.events.events[t.EventID]; ok && (e.DeletedAt != nil || e.Status == models.EventCancelled) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeBookingStore) Create(_ context.Context, booking *models.Booking) error {
	booking.CreatedAt = time.Now()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *fakeBookingStore) ReserveStock(_ context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	t, ok := s.tickets.tickets[ticketTypeID]
	if !ok || t.DeletedAt != nil || t.QuantityAvailable < quantity {
		return false, nil
	}
	t.QuantityAvailable -= quantity
	s.tickets.tickets[ticketTypeID] = t
	return true, nil
}

func (s *fakeBookingStore) ReleaseStock(_ context.Context, ticketTypeID uuid.UUID, quantity int) error {
	t := s.tickets.tickets[ticketTypeID]
	t.QuantityAvailable += quantity
	s.tickets.tickets[ticketTypeID] = t
	return nil
}

func (s *fakeBookingStore) SetPaymentRef(_ context.Context, id uuid.UUID, ref string) error {
	b, ok := s.bookings[id]
	if !ok {
		return models.ErrBookingNotFound
	}
	b.PaymentRef = &ref
	s.bookings[id] = b
	return nil
}

func (s *fakeBookingStore) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	return &b, nil
}

func (s *fakeBookingStore) ListByUser(_ context.Context, userID uuid.UUID, page models.PageRequest) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func cursorOf(b models.Booking) models.PendingCursor {
	return models.PendingCursor{CreatedAt: b.CreatedAt, ID: b.ID}
}

// cursorLess orders like ORDER BY created_at, id.
func cursorLess(a, b models.PendingCursor) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (s *fakeBookingStore) ListPending(_ context.Context, olderThan time.Time, after *models.PendingCursor, limit int) ([]models.Booking, error) {
	s.listPendingCalls++
	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status != models.BookingPendingPayment || !b.CreatedAt.Before(olderThan) {
			continue
		}
		if after != nil && !cursorLess(*after, cursorOf(b)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return cursorLess(cursorOf(out[i]), cursorOf(out[j])) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeBookingStore) transition(id uuid.UUID, status models.BookingStatus, payment models.PaymentStatus) bool {
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingPendingPayment {
		return false
	}
	b.Status = status
	b.PaymentStatus = payment
	s.bookings[id] = b
	return true
}

func (s *fakeBookingStore) MarkConfirmed(_ context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, models.BookingConfirmed, models.PaymentSuccess), nil
}

func (s *fakeBookingStore) MarkPaymentFailed(_ context.Context, id uuid.UUID) error {
	b, ok := s.bookings[id]
	if ok && b.Status == models.BookingPendingPayment {
		b.PaymentStatus = models.PaymentFailed
		s.bookings[id] = b
	}
	return nil
}

func (s *fakeBookingStore) Cancel(_ context.Context, id uuid.UUID, paymentStatus models.PaymentStatus) (bool, error) {
	return s.transition(id, models.BookingCancelled, paymentStatus), nil
}

// settledElsewhereStore lets another request settle the booking between the
// gateway verdict and MarkConfirmed.
type settledElsewhereStore struct {
	*fakeBookingStore
	status models.BookingStatus
}

func (s *settledElsewhereStore) MarkConfirmed(_ context.Context, id uuid.UUID) (bool, error) {
	b := s.bookings[id]
	b.Status = s.status
	s.bookings[id] = b
	return false, nil
}

type fakeGateway struct {
	initErr      error
	verifyErr    error
	failRefs     map[string]bool
	verification models.Verification
	charges      []models.ChargeRequest
	verified     []string
}

func (g *fakeGateway) Initialize(_ context.Context, charge models.ChargeRequest) (*models.Authorization, error) {
	g.charges = append(g.charges, charge)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &models.Authorization{
		URL:       "https://checkout.example.com/" + charge.Reference,
		Reference: charge.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*models.Verification, error) {
	g.verified = append(g.verified, reference)
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.failRefs[reference] {
		return nil, errGatewayDown
	}
	v := g.verification
	v.Reference = reference
	return &v, nil
}

type fakePublisher struct {
	created  []uuid.UUID
	statuses []models.BookingStatus
	err      error
}

func (p *fakePublisher) PublishBookingCreated(_ context.Context, booking *models.Booking) error {
	p.created = append(p.created, booking.ID)
	return p.err
}

func (p *fakePublisher) PublishBookingStatus(_ context.Context, booking *models.Booking) error {
	p.statuses = append(p.statuses, booking.Status)
	return p.err
}

var errGatewayDown = errors.New("gateway down")
