package models

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventScheduled  EventStatus = "SCHEDULED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
	EventCancelled  EventStatus = "CANCELLED"
)

type Event struct {
	ID              uuid.UUID   `json:"id"`
	VenueID         uuid.UUID   `json:"venueId"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	DateTime        time.Time   `json:"dateTime"`
	DurationMinutes int         `json:"durationMinutes"`
	Status          EventStatus `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	DeletedAt       *time.Time  `json:"deletedAt,omitempty"`
}

// EndTime is the instant the event finishes.
func (e Event) EndTime() time.Time {
	return e.DateTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// StatusAt derives the schedule status at now. Cancelled events stay cancelled.
func (e Event) StatusAt(now time.Time) EventStatus {
	if e.Status == EventCancelled {
		return EventCancelled
	}
	switch {
	case now.Before(e.DateTime):
		return EventScheduled
	case !now.After(e.EndTime()):
		return EventInProgress
	default:
		return EventCompleted
	}
}

type CreateEventRequest struct {
	VenueID         string `json:"venueId" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description" binding:"required"`
	DateTime        string `json:"dateTime" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required"`
}

type EditEventRequest struct {
	VenueID         *string `json:"venueId"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	DateTime        *string `json:"dateTime"`
	DurationMinutes *int    `json:"durationMinutes"`
}

func (r EditEventRequest) IsEmpty() bool {
	return r.VenueID == nil && r.Name == nil && r.Description == nil &&
		r.DateTime == nil && r.DurationMinutes == nil
}

// ConflictQuery describes the window checked for overlapping events.
type ConflictQuery struct {
	VenueID   uuid.UUID
	Name      string
	Start     time.Time
	End       time.Time
	ExcludeID *uuid.UUID
}
