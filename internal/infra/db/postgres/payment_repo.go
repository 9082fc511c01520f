package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

// Upsert keys on external_id: a concurrent delivery for the same gateway id
// lands on the same row instead of inserting a duplicate, which is the
// whole idempotency story for webhook redelivery.
func (r *paymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, external_id, status, amount, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (external_id) DO UPDATE SET
  status=$4, amount=$5, metadata=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.ExternalID, p.Status, p.Amount, p.Metadata, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

const paymentCols = `id, user_id, external_id, status, amount, metadata, created_at, updated_at`

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.scanOne(ctx, tx, q, id)
}

func (r *paymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE external_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.scanOne(ctx, tx, q, externalID)
}

func (r *paymentRepo) scanOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.ExternalID, &p.Status, &p.Amount, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// ReplaceItems deletes and recreates the payment's item set. No per-item
// diffing: items are a snapshot of the gateway's latest view.
func (r *paymentRepo) ReplaceItems(ctx context.Context, tx repository.Tx, paymentID string, items []model.PaymentItem) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM payment_items WHERE payment_id=$1;`, paymentID); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	const q = `
INSERT INTO payment_items (id, payment_id, track_id, title, kind, price, quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	for _, it := range items {
		if _, err := execSQL(ctx, r.pool, tx, q, it.ID, paymentID, it.TrackID, it.Title, it.Kind, it.Price, it.Quantity); err != nil {
			if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
				return err
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *paymentRepo) ListItems(ctx context.Context, tx repository.Tx, paymentID string) ([]model.PaymentItem, error) {
	const q = `SELECT id, payment_id, track_id, title, kind, price, quantity FROM payment_items WHERE payment_id=$1 ORDER BY title;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PaymentItem
	for rows.Next() {
		var it model.PaymentItem
		if err := rows.Scan(&it.ID, &it.PaymentID, &it.TrackID, &it.Title, &it.Kind, &it.Price, &it.Quantity); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentCols + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		if err := rows.Scan(&p.ID, &p.UserID, &p.ExternalID, &p.Status, &p.Amount, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) SumApprovedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='approved' AND updated_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
