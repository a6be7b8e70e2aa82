package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

const (
	codeValidation          = "VALIDATION_ERROR"
	codeInternal            = "INTERNAL_ERROR"
	codeVerificationFailed  = "PAYMENT_VERIFICATION_FAILED"
	codeInvalidWebhookInput = "INVALID_WEBHOOK_PAYLOAD"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrEmptyForm, http.StatusBadRequest, "EMPTY_FORM"},
	{models.ErrMissingFields, http.StatusBadRequest, "MISSING_FIELDS"},
	{models.ErrInvalidID, http.StatusBadRequest, "INVALID_ID"},
	{models.ErrInvalidLimit, http.StatusBadRequest, "INVALID_LIMIT"},

	{models.ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{models.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{models.ErrWrongCredentials, http.StatusUnauthorized, "WRONG_CREDENTIALS"},
	{models.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{models.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{models.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},

	{models.ErrVenueNotFound, http.StatusNotFound, "VENUE_NOT_FOUND"},
	{models.ErrVenueAlreadyExists, http.StatusConflict, "VENUE_ALREADY_EXISTS"},
	{models.ErrInvalidCapacity, http.StatusBadRequest, "INVALID_CAPACITY"},

	{models.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{models.ErrEventConflict, http.StatusBadRequest, "EVENT_CONFLICT"},
	{models.ErrInvalidDateTime, http.StatusBadRequest, "INVALID_DATE_TIME"},
	{models.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{models.ErrEventAlreadyDeleted, http.StatusBadRequest, "EVENT_ALREADY_DELETED"},
	{models.ErrEventNotDeleted, http.StatusBadRequest, "EVENT_NOT_DELETED"},

	{models.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
	{models.ErrTicketDuplicate, http.StatusConflict, "TICKET_DUPLICATE"},
	{models.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{models.ErrInvalidPrice, http.StatusBadRequest, "INVALID_PRICE"},
	{models.ErrInvalidTotalQuantity, http.StatusBadRequest, "INVALID_TOTAL_QUANTITY"},
	{models.ErrTicketAlreadyDeleted, http.StatusBadRequest, "TICKET_ALREADY_DELETED"},
	{models.ErrTicketNotDeleted, http.StatusBadRequest, "TICKET_NOT_DELETED"},

	{models.ErrEmptyBooking, http.StatusBadRequest, "EMPTY_BOOKING"},
	{models.ErrInsufficientStock, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
	{models.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{models.ErrBookingNotPending, http.StatusBadRequest, "BOOKING_NOT_PENDING"},
	{models.ErrPaymentInitFailed, http.StatusBadGateway, "PAYMENT_INIT_FAILED"},
	{models.ErrPaymentVerifyFailed, http.StatusBadGateway, "PAYMENT_VERIFY_FAILED"},
	{models.ErrInvalidSignature, http.StatusUnauthorized, "INVALID_SIGNATURE"},
}

// respondError answers with the status and code registered for err. Anything
// unrecognised is logged and hidden behind a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": m.err.Error(), "code": m.code})
			return
		}
	}

	logger.Error("❌ Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "internal server error",
		"code":  codeInternal,
	})
}

func respondValidation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeValidation})
}

func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, models.ErrEmptyForm) {
		respondError(c, logger, err)
		return
	}
	respondValidation(c, err)
}
