package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (
  id, payment_id, external_id, status, amount, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  external_id=$3, status=$4, amount=$5, updated_at=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.PaymentID, rf.ExternalID, rf.Status, rf.Amount, rf.CreatedAt, rf.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT id, payment_id, external_id, status, amount, created_at, updated_at FROM refunds WHERE payment_id=$1 ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		rf := new(model.Refund)
		if err := rows.Scan(&rf.ID, &rf.PaymentID, &rf.ExternalID, &rf.Status, &rf.Amount, &rf.CreatedAt, &rf.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rf)
	}
	return out, nil
}

func (r *refundRepo) HasFinal(ctx context.Context, tx repository.Tx, paymentID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM refunds WHERE payment_id=$1 AND status IN ('completed','approved'));`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *refundRepo) MarkPendingCompleted(ctx context.Context, tx repository.Tx, paymentID string, externalID *string) error {
	const q = `UPDATE refunds SET status='completed', external_id=COALESCE($2, external_id), updated_at=NOW() WHERE payment_id=$1 AND status='pending';`
	_, err := execSQL(ctx, r.pool, tx, q, paymentID, externalID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
