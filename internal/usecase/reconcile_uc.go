// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/logging"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileInput is one normalized gateway event: everything the webhook
// handler (or the stale-pending scanner) extracted from the payment detail.
type ReconcileInput struct {
	ExternalID   string
	UserID       string
	Status       model.PaymentStatus
	Amount       int64 // minor units
	Items        []model.PaymentItem
	Metadata     model.Metadata
	PeriodMonths int // 0 means "not stated"; grant defaults to yearly
}

// ReconcileUseCase brings the local payment record in line with the
// gateway's view of it and applies the access side effects of the state
// transition. Safe under at-least-once webhook delivery: all writes are
// keyed upserts, so replaying an identical event rewrites identical rows.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, in ReconcileInput) (*model.Payment, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	users    repository.UserRepository
	enroll   EnrollmentUseCase
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	users repository.UserRepository,
	enroll EnrollmentUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{payments: payments, refunds: refunds, users: users, enroll: enroll, tm: tm, log: logger}
}

func (u *reconcileUC) Reconcile(ctx context.Context, in ReconcileInput) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Reconcile")()

	if in.ExternalID == "" {
		return nil, fmt.Errorf("reconcile: external id: %w", domain.ErrInvalidArgument)
	}

	// Events for payments this service initiated itself carry an opaque
	// external_reference and no metadata bag: the preapproval request only
	// names the payer and the billing terms. The row the initiator stored
	// fills in whatever the gateway detail leaves out.
	stored, err := u.payments.FindByExternalID(ctx, repository.NoTX, in.ExternalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if stored != nil {
		if err := u.fillFromStored(ctx, &in, stored); err != nil {
			return nil, err
		}
	}

	// The event must resolve to a known user before anything is written;
	// orphaned payments are worse than a dropped event, which the gateway
	// will redeliver anyway.
	if _, err := u.users.FindByID(ctx, repository.NoTX, in.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("reconcile %s: %w", in.ExternalID, domain.ErrUserNotFound)
		}
		return nil, err
	}

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("reconcile %s: %w", in.ExternalID, domain.ErrMissingItems)
	}

	var result *model.Payment
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByExternalID(ctx, tx, in.ExternalID)
		switch {
		case err == nil:
			// Merge so previously stored fields the gateway no longer echoes
			// (payment method, QR codes, ticket URLs) survive the update.
			p.Status = in.Status
			p.Amount = in.Amount
			p.Metadata = p.Metadata.Merge(in.Metadata)
			p.UpdatedAt = time.Now()
		case errors.Is(err, domain.ErrNotFound):
			// First delivery beat the synchronous creation path (or there was
			// none); create the record lazily.
			p, err = model.NewPayment(uuid.NewString(), in.UserID, in.ExternalID, in.Status, in.Amount, in.Metadata)
			if err != nil {
				return err
			}
		default:
			return err
		}

		if err := u.payments.Upsert(ctx, tx, p); err != nil {
			return err
		}

		items := make([]model.PaymentItem, len(in.Items))
		for i, it := range in.Items {
			it.ID = uuid.NewString()
			it.PaymentID = p.ID
			if it.Quantity <= 0 {
				it.Quantity = 1
			}
			items[i] = it
		}
		if err := u.payments.ReplaceItems(ctx, tx, p.ID, items); err != nil {
			return err
		}
		p.Items = items

		if err := u.applyTransition(ctx, tx, p, in.PeriodMonths); err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.With(ctx, u.log).Info().
		Str("external_id", in.ExternalID).
		Str("user_id", in.UserID).
		Str("status", string(in.Status)).
		Int64("amount", in.Amount).
		Msg("payment reconciled")
	return result, nil
}

// fillFromStored backfills a reconcile input from the payment row this
// service wrote when it created the subscription. Redirect-flow
// authorizations need this: their webhook detail resolves to the opaque
// external_reference instead of a user id, carries no item list, and never
// states a duration, so user, items and billing period exist only locally.
func (u *reconcileUC) fillFromStored(ctx context.Context, in *ReconcileInput, stored *model.Payment) error {
	if in.UserID != stored.UserID {
		_, err := u.users.FindByID(ctx, repository.NoTX, in.UserID)
		switch {
		case err == nil:
			// The incoming id names a real user; it wins.
		case errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound):
			in.UserID = stored.UserID
		default:
			return err
		}
	}
	if len(in.Items) == 0 {
		items, err := u.payments.ListItems(ctx, repository.NoTX, stored.ID)
		if err != nil {
			return err
		}
		in.Items = items
	}
	if in.PeriodMonths == 0 {
		in.PeriodMonths = stored.Metadata.Int("frequency")
	}
	return nil
}

// applyTransition drives the access side effects of the new status.
// FAILED and PENDING change nothing: a failed payment never granted access,
// and a pending one is upserted only so the user sees it as "processing".
func (u *reconcileUC) applyTransition(ctx context.Context, tx repository.Tx, p *model.Payment, periodMonths int) error {
	switch {
	case p.Status.AccessGranting():
		return u.enroll.GrantAccess(ctx, tx, p.UserID, p.Items, periodMonths)
	case p.Status.AccessRevoking():
		if err := u.enroll.RevokeAccess(ctx, tx, p.UserID, p.Items); err != nil {
			return err
		}
		if p.Status == model.PaymentStatusRefunded {
			return u.refunds.MarkPendingCompleted(ctx, tx, p.ID, nil)
		}
		return nil
	default:
		return nil
	}
}
