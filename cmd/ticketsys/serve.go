package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := requireConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Auth:          a.auth,
		Users:         a.users,
		Venues:        a.venues,
		Events:        a.events,
		Tickets:       a.tickets,
		Bookings:      a.bookings,
		Webhooks:      a.paystack,
		HealthChecks:  a.healthChecks(),
		SecureCookies: cfg.IsProduction(),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	if cfg.Consul.Enabled {
		consul, err := discovery.NewConsulClient(cfg.Consul.Addr, logger)
		if err != nil {
			return err
		}
		if err := consul.Register(discovery.ServiceConfig{
			Name: cfg.Discovery.ServiceName,
			ID:   cfg.Discovery.ServiceID,
			Port: cfg.HTTP.Port,
			Tags: cfg.Discovery.Tags,
		}); err != nil {
			return err
		}
		// Deregister on shutdown
		defer func() {
			if err := consul.Deregister(cfg.Discovery.ServiceID); err != nil {
				logger.Warn("⚠️ Failed to deregister from Consul", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 ticketsys API starting", zap.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("✅ Server stopped")
	return nil
}
