package models

import "errors"

var (
	ErrEmptyForm     = errors.New("you cannot submit an empty form")
	ErrMissingFields = errors.New("you must fill all the required form fields")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")

	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongCredentials  = errors.New("invalid email or password")
	ErrEmailTaken        = errors.New("email is taken")
	ErrUnauthorized      = errors.New("invalid or missing credentials")
	ErrForbidden         = errors.New("insufficient permissions")

	ErrVenueNotFound      = errors.New("venue not found")
	ErrVenueAlreadyExists = errors.New("venue with this name already exists")
	ErrInvalidCapacity    = errors.New("capacity must be greater than 0")

	ErrEventNotFound       = errors.New("event not found")
	ErrEventConflict       = errors.New("an event with this name at the same venue overlaps in time")
	ErrInvalidDateTime     = errors.New("invalid dateTime format, must be a valid ISO 8601 date")
	ErrInvalidDuration     = errors.New("duration must be a positive number of minutes")
	ErrEventAlreadyDeleted = errors.New("event has already been deleted")
	ErrEventNotDeleted     = errors.New("event is not deleted")

	ErrTicketNotFound       = errors.New("ticket type not found")
	ErrTicketDuplicate      = errors.New("a ticket type with this name already exists for the event")
	ErrInvalidQuantity      = errors.New("quantity must be greater than 0")
	ErrInvalidPrice         = errors.New("price must be positive with at most 2 decimal places")
	ErrInvalidTotalQuantity = errors.New("new total quantity cannot be less than the number of tickets already sold")
	ErrTicketAlreadyDeleted = errors.New("ticket type already deleted")
	ErrTicketNotDeleted     = errors.New("ticket type is not deleted")

	ErrEmptyBooking        = errors.New("a booking needs at least one item")
	ErrInsufficientStock   = errors.New("not enough tickets available")
	ErrBookingNotFound     = errors.New("booking or payment reference not found")
	ErrBookingNotPending   = errors.New("booking is not awaiting payment")
	ErrPaymentInitFailed   = errors.New("failed to initialize payment")
	ErrPaymentVerifyFailed = errors.New("payment verification failed")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)
