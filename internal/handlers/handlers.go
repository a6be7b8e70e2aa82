package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/service"
)

type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*models.Principal, error)
	Authorize(ctx context.Context, principal *models.Principal, action string) error
	CanReadAnyBooking(ctx context.Context, principal *models.Principal) bool
	AccessTTL() int
	RefreshTTL() int
}

type UserService interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context, page models.PageRequest) (models.Page[models.User], error)
}

type VenueService interface {
	List(ctx context.Context, page models.PageRequest) (models.Page[models.Venue], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	Create(ctx context.Context, req models.CreateVenueRequest) (*models.Venue, error)
	Edit(ctx context.Context, id uuid.UUID, req models.EditVenueRequest) (*models.Venue, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type EventService interface {
	List(ctx context.Context, page models.PageRequest) (models.Page[models.Event], error)
	ListByVenue(ctx context.Context, venueID uuid.UUID, page models.PageRequest) (models.Page[models.Event], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error)
	Edit(ctx context.Context, id uuid.UUID, req models.EditEventRequest) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type TicketService interface {
	Create(ctx context.Context, eventID uuid.UUID, req models.CreateTicketTypeRequest) (*models.TicketType, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TicketType, error)
	Get(ctx context.Context, id uuid.UUID) (*models.TicketType, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateTicketTypeRequest) (*models.TicketType, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
}

type BookingService interface {
	Create(ctx context.Context, userID uuid.UUID, items []models.BookingItemInput) (*models.BookingResult, error)
	VerifyPayment(ctx context.Context, reference string) (bool, error)
	HandleWebhook(ctx context.Context, hook models.PaymentWebhook) error
	ListForUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) (models.Page[models.Booking], error)
	Get(ctx context.Context, id, viewer uuid.UUID, readAny bool) (*models.Booking, error)
}

// SignatureVerifier checks webhook bodies against the gateway signature header.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// pathID parses the named path parameter as a uuid.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	return service.ParseID(c.Param(name))
}

// pageRequest reads ?limit= and ?cursor=.
func pageRequest(c *gin.Context) (models.PageRequest, error) {
	var page models.PageRequest
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return page, models.ErrInvalidLimit
		}
		page.Limit = limit
	}
	if raw := c.Query("cursor"); raw != "" {
		cursor, err := service.ParseID(raw)
		if err != nil {
			return page, err
		}
		page.Cursor = &cursor
	}
	return page.Normalize(), nil
}

// bindPatch binds a partial update; an empty body is an empty form.
func bindPatch(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ErrEmptyForm
		}
		return err
	}
	return nil
}
