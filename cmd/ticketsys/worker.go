package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/consumer"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the payment reconciler and the stock cache consumer",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	reconciler := worker.NewPaymentReconciler(a.bookings, worker.ReconcilerConfig{
		Interval:    cfg.GetReconcileInterval(),
		VerifyAfter: cfg.GetVerifyAfter(),
		ExpireAfter: cfg.GetExpireAfter(),
	}, logger)
	tasks := []worker.Task{reconciler.Run}

	// Stock changes only matter to the cache.
	if a.mq != nil && a.stockCache != nil {
		stock := consumer.NewStockConsumer(a.stockCache, logger)
		for _, queue := range []string{publisher.BookingCreatedQueue, publisher.BookingCancelledQueue} {
			messages, err := a.mq.Consume(queue)
			if err != nil {
				return err
			}
			tasks = append(tasks, func(ctx context.Context) error {
				if err := stock.Run(ctx, messages); err != nil {
					return err
				}
				if ctx.Err() == nil {
					return fmt.Errorf("queue %s closed by broker", queue)
				}
				return nil
			})
		}
	}

	err = worker.Run(ctx, tasks...)
	logger.Info("Worker stopped")
	return err
}
