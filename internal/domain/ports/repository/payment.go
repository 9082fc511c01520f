package repository

import (
	"context"
	"time"

	"lingua-billing/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Upsert inserts the payment or, when a row with the same external id
	// exists, overwrites status/amount/metadata on it. The write is a single
	// ON CONFLICT statement so concurrent deliveries for the same external id
	// serialize at the database rather than racing read-then-write.
	Upsert(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Payment, error)
	// ReplaceItems deletes all items of the payment and recreates the given
	// set. Items are a snapshot, not a ledger; no per-item diffing.
	ReplaceItems(ctx context.Context, tx Tx, paymentID string, items []model.PaymentItem) error
	ListItems(ctx context.Context, tx Tx, paymentID string) ([]model.PaymentItem, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	SumApprovedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}

// -----------------------------
// Refunds
// -----------------------------

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
	// HasFinal reports whether the payment already carries a refund in a
	// completed/approved state. Enforces the one-refund-per-payment rule.
	HasFinal(ctx context.Context, tx Tx, paymentID string) (bool, error)
	// MarkPendingCompleted flips all pending refunds of the payment to
	// completed, recording the gateway refund id when known.
	MarkPendingCompleted(ctx context.Context, tx Tx, paymentID string, externalID *string) error
}
