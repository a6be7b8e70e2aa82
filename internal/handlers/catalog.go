package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type VenueHandler struct {
	venues VenueService
	logger *zap.Logger
}

func NewVenueHandler(venues VenueService, logger *zap.Logger) *VenueHandler {
	return &VenueHandler{venues: venues, logger: logger}
}

func (h *VenueHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	venues, err := h.venues.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, venues)
}

func (h *VenueHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	venue, err := h.venues.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, venue)
}

func (h *VenueHandler) Create(c *gin.Context) {
	var req models.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	venue, err := h.venues.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, venue)
}

func (h *VenueHandler) Edit(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req models.EditVenueRequest
	if err := bindPatch(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	venue, err := h.venues.Edit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, venue)
}

func (h *VenueHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.venues.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Venue deleted"})
}

type EventHandler struct {
	events EventService
	logger *zap.Logger
}

func NewEventHandler(events EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

func (h *EventHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	events, err := h.events.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) ListByVenue(c *gin.Context) {
	venueID, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page, err := pageRequest(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	events, err := h.events.ListByVenue(c.Request.Context(), venueID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) Edit(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req models.EditEventRequest
	if err := bindPatch(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	event, err := h.events.Edit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	h.simple(c, h.events.Delete, "Event deleted")
}

func (h *EventHandler) Restore(c *gin.Context) {
	h.simple(c, h.events.Restore, "Event restored")
}

// simple runs an id-only operation and answers with message.
func (h *EventHandler) simple(c *gin.Context, op func(ctx context.Context, id uuid.UUID) error, message string) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *EventHandler) Cancel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	event, err := h.events.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

type TicketHandler struct {
	tickets TicketService
	logger  *zap.Logger
}

func NewTicketHandler(tickets TicketService, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, logger: logger}
}

func (h *TicketHandler) Create(c *gin.Context) {
	eventID, err := pathID(c, "eventId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req models.CreateTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	ticket, err := h.tickets.Create(c.Request.Context(), eventID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) ListByEvent(c *gin.Context) {
	eventID, err := pathID(c, "eventId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tickets, err := h.tickets.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ticket, err := h.tickets.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req models.UpdateTicketTypeRequest
	if err := bindPatch(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	ticket, err := h.tickets.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.tickets.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket type deleted"})
}

func (h *TicketHandler) Restore(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.tickets.Restore(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket type restored"})
}
