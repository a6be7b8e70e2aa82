package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/service"
)

// Reconciler settles or expires bookings stuck in PENDING_PAYMENT.
type Reconciler interface {
	Reconcile(ctx context.Context, verifyAfter, expireAfter time.Duration) (service.ReconcileStats, error)
}

type ReconcilerConfig struct {
	Interval    time.Duration
	VerifyAfter time.Duration
	ExpireAfter time.Duration
}

// PaymentReconciler runs a reconciliation pass on every tick.
type PaymentReconciler struct {
	reconciler Reconciler
	cfg        ReconcilerConfig
	logger     *zap.Logger
}

func NewPaymentReconciler(r Reconciler, cfg ReconcilerConfig, logger *zap.Logger) *PaymentReconciler {
	return &PaymentReconciler{reconciler: r, cfg: cfg, logger: logger}
}

// Run does one pass immediately and then one per interval until ctx is done.
// A failed pass is logged and retried on the next tick.
func (p *PaymentReconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info("💳 Payment reconciler started", zap.Duration("interval", p.cfg.Interval))
	for {
		p.pass(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("Payment reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *PaymentReconciler) pass(ctx context.Context) {
	stats, err := p.reconciler.Reconcile(ctx, p.cfg.VerifyAfter, p.cfg.ExpireAfter)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("❌ Reconcile pass failed", zap.Error(err))
		}
		return
	}
	if stats.Checked > 0 {
		p.logger.Info("💳 Reconcile pass finished",
			zap.Int("checked", stats.Checked),
			zap.Int("confirmed", stats.Confirmed),
			zap.Int("expired", stats.Expired))
	}
}
