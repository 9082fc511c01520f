package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/payment/mercadopago"
	"lingua-billing/internal/infra/worker"
	"lingua-billing/internal/usecase"
)

// PendingReconciler periodically scans for stale pending payments and
// re-fetches them from the gateway, pushing the result through the same
// reconciliation path a webhook would take. This covers webhooks the
// gateway dropped or that arrived while the process was down.
type PendingReconciler struct {
	uc         usecase.ReconcileUseCase
	payments   repository.PaymentRepository
	gateway    adapter.PaymentGateway
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	timeout    time.Duration // per gateway fetch
	log        *zerolog.Logger
}

func NewPendingReconciler(
	uc usecase.ReconcileUseCase,
	payments repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	pool *worker.Pool,
	interval, staleAfter, timeout time.Duration,
	logger *zerolog.Logger,
) *PendingReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PendingReconciler{
		uc:         uc,
		payments:   payments,
		gateway:    gateway,
		pool:       pool,
		interval:   interval,
		staleAfter: staleAfter,
		timeout:    timeout,
		log:        logger,
	}
}

func (w *PendingReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PendingReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("pending-reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		externalID := p.ExternalID
		if externalID == "" {
			continue
		}
		task := func(ctx context.Context) error {
			fctx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()
			detail, err := w.gateway.GetPayment(fctx, externalID)
			if err != nil {
				w.log.Warn().Err(err).Str("external_id", externalID).Msg("pending-reconciler: fetch failed")
				return nil // gateway hiccups retry on the next tick
			}
			if _, err := w.uc.Reconcile(ctx, mercadopago.BuildReconcileInput(detail)); err != nil {
				w.log.Error().Err(err).Str("external_id", externalID).Msg("pending-reconciler: reconcile failed")
				return nil
			}
			w.log.Info().Str("external_id", externalID).Msg("pending-reconciler: reconciled")
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			w.log.Warn().Err(err).Msg("pending-reconciler: pool saturated, deferring to next tick")
			return
		}
	}
}
