package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/auth"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/client"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/config"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/db"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/handlers"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/messaging"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/service"
)

// app holds the connections and services shared by serve and worker.
type app struct {
	database *db.PostgresDB
	redis    *cache.RedisCache   // nil when redis is disabled
	mq       *messaging.RabbitMQ // nil when rabbitmq is disabled
	paystack *client.PaystackClient

	// stockCache is nil when redis is disabled.
	stockCache *db.CachedTicketRepository

	auth     *service.AuthService
	users    *service.UserService
	venues   *service.VenueService
	events   *service.EventService
	tickets  *service.TicketService
	bookings *service.BookingService
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	a.database, err = db.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := a.database.Migrate(ctx, logger); err != nil {
		return nil, err
	}

	userRepo := db.NewUserRepository(a.database)
	venueRepo := db.NewVenueRepository(a.database)
	bookingRepo := db.NewBookingRepository(a.database)
	var (
		eventStore  service.EventStore  = db.NewEventRepository(a.database)
		ticketStore service.TicketStore = db.NewTicketRepository(a.database)
	)

	if cfg.Redis.Enabled {
		a.redis, err = cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.GetCacheTTL(), logger)
		if err != nil {
			return nil, err
		}
		eventStore = db.NewCachedEventRepository(db.NewEventRepository(a.database), a.redis, logger)
		a.stockCache = db.NewCachedTicketRepository(db.NewTicketRepository(a.database), a.redis, logger)
		ticketStore = a.stockCache
	} else {
		logger.Warn("⚠️ Redis disabled, reading catalog straight from PostgreSQL")
	}

	var events service.EventPublisher = publisher.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		a.mq, err = messaging.NewRabbitMQ(cfg.RabbitMQ.URL, logger)
		if err != nil {
			return nil, err
		}
		events, err = publisher.NewBookingPublisher(a.mq, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("⚠️ RabbitMQ disabled, booking events will not be published")
	}

	policy, err := auth.NewPolicy(ctx)
	if err != nil {
		return nil, err
	}
	clk := clock.NewSystem()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.GetAccessTTL(), cfg.GetRefreshTTL(), clk)

	a.paystack = client.NewPaystackClient(cfg.Payment.PaystackBaseURL, cfg.Payment.PaystackSecretKey,
		cfg.Payment.Currency, cfg.GetPaymentTimeout(), logger)

	a.auth = service.NewAuthService(userRepo, tokens, policy, logger)
	a.users = service.NewUserService(userRepo)
	a.venues = service.NewVenueService(venueRepo, clk)
	a.events = service.NewEventService(eventStore, venueRepo, ticketStore, a.database, clk, logger)
	a.tickets = service.NewTicketService(ticketStore, eventStore, clk)
	a.bookings = service.NewBookingService(bookingRepo, userRepo, a.paystack, events, clk,
		cfg.Payment.CallbackURL, logger)

	ok = true
	return a, nil
}

func (a *app) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{"postgres": a.database.Ping}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

func (a *app) Close() {
	if a.mq != nil {
		a.mq.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.database != nil {
		_ = a.database.Close()
	}
}

func requireConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	return nil
}
