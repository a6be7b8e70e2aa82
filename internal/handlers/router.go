package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/auth"
)

// Deps is everything the router needs.
type Deps struct {
	Auth          AuthService
	Users         UserService
	Venues        VenueService
	Events        EventService
	Tickets       TicketService
	Bookings      BookingService
	Webhooks      SignatureVerifier
	HealthChecks  map[string]HealthCheck
	SecureCookies bool
	Logger        *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Logger))

	authH := NewAuthHandler(d.Auth, d.SecureCookies, d.Logger)
	userH := NewUserHandler(d.Users, d.Logger)
	venueH := NewVenueHandler(d.Venues, d.Logger)
	eventH := NewEventHandler(d.Events, d.Logger)
	ticketH := NewTicketHandler(d.Tickets, d.Logger)
	bookingH := NewBookingHandler(d.Auth, d.Bookings, d.Webhooks, d.Logger)

	authn := Authenticate(d.Auth, d.Logger)
	can := func(action string) gin.HandlerFunc { return RequireAction(d.Auth, d.Logger, action) }

	router.GET("/health", Health(d.HealthChecks))

	a := router.Group("/auth")
	a.POST("/signup", authH.SignUp)
	a.POST("/signin", authH.SignIn)
	a.POST("/refresh", authH.Refresh)
	a.POST("/signout", authH.SignOut)

	u := router.Group("/users", authn)
	u.GET("/profile", can(auth.ActionProfile), userH.Profile)
	u.PATCH("/update-profile", can(auth.ActionProfile), userH.UpdateProfile)
	u.GET("/all", can(auth.ActionUserList), userH.ListUsers)

	v := router.Group("/venue", authn)
	v.GET("/all", venueH.List)
	v.GET("/:id", venueH.Get)
	v.POST("/create", can(auth.ActionVenueWrite), venueH.Create)
	v.PATCH("/edit/:id", can(auth.ActionVenueWrite), venueH.Edit)
	v.DELETE("/delete/:id", can(auth.ActionVenueWrite), venueH.Delete)

	e := router.Group("/event")
	e.GET("/all", eventH.List)
	e.GET("/venue/:id", eventH.ListByVenue)
	e.GET("/:id", eventH.Get)
	ew := e.Group("", authn, can(auth.ActionEventWrite))
	ew.POST("/create", eventH.Create)
	ew.PATCH("/edit/:id", eventH.Edit)
	ew.DELETE("/delete/:id", eventH.Delete)
	ew.PATCH("/restore/:id", eventH.Restore)
	ew.PATCH("/cancel/:id", eventH.Cancel)

	t := router.Group("/tickets")
	t.GET("/event/:eventId", ticketH.ListByEvent)
	t.GET("/:id", ticketH.Get)
	tw := t.Group("", authn, can(auth.ActionTicketWrite))
	tw.POST("/create/:eventId", ticketH.Create)
	tw.PATCH("/edit/:id", ticketH.Update)
	tw.DELETE("/delete/:id", ticketH.Delete)
	tw.PATCH("/restore/:id", ticketH.Restore)

	b := router.Group("/booking", authn)
	b.POST("", can(auth.ActionBookingCreate), bookingH.Create)
	b.GET("", bookingH.List)
	b.GET("/verify-payment/:bookingId", bookingH.VerifyPayment)
	b.GET("/:id", bookingH.Get)

	router.GET("/payment/callback", authn, bookingH.PaymentCallback)
	router.POST("/payment/webhook", bookingH.Webhook)

	return router
}
