package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/service"
)

const (
	signatureHeader = "x-paystack-signature"
	maxWebhookBody  = 1 << 20
)

var errMissingReference = errors.New("payment reference is required")

type BookingHandler struct {
	auth     AuthService
	bookings BookingService
	webhooks SignatureVerifier
	logger   *zap.Logger
}

func NewBookingHandler(auth AuthService, bookings BookingService, webhooks SignatureVerifier, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{auth: auth, bookings: bookings, webhooks: webhooks, logger: logger}
}

// Create books tickets for the caller
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	items := make([]models.BookingItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := service.ParseID(item.TicketTypeID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		items = append(items, models.BookingItemInput{TicketTypeID: id, Quantity: item.Quantity})
	}

	result, err := h.bookings.Create(c.Request.Context(), principal(c).UserID, items)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List returns the caller's bookings
func (h *BookingHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	bookings, err := h.bookings.ListForUser(c.Request.Context(), principal(c).UserID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// Get returns one booking; admins may read anyone's
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	p := principal(c)
	booking, err := h.bookings.Get(c.Request.Context(), id, p.UserID, h.auth.CanReadAnyBooking(c.Request.Context(), p))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// VerifyPayment handles GET /booking/verify-payment/:bookingId
func (h *BookingHandler) VerifyPayment(c *gin.Context) {
	h.verify(c, c.Param("bookingId"))
}

// PaymentCallback is where the gateway redirects the payer.
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		respondValidation(c, errMissingReference)
		return
	}
	h.verify(c, reference)
}

func (h *BookingHandler) verify(c *gin.Context, reference string) {
	confirmed, err := h.bookings.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !confirmed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment verification failed",
			"code":  codeVerificationFailed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment verified, booking confirmed", "bookingId": reference})
}

// Webhook receives signed gateway notifications.
func (h *BookingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondValidation(c, err)
		return
	}
	if !h.webhooks.VerifySignature(body, c.GetHeader(signatureHeader)) {
		h.logger.Warn("⚠️ Rejected webhook with bad signature", zap.String("ip", c.ClientIP()))
		respondError(c, h.logger, models.ErrInvalidSignature)
		return
	}

	var hook models.PaymentWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeInvalidWebhookInput})
		return
	}

	if err := h.bookings.HandleWebhook(c.Request.Context(), hook); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
