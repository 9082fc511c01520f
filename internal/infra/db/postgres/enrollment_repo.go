package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/metrics"
)

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

// Upsert relies on the (user_id, track_id) unique constraint: granting an
// already-held track updates end_at and leaves start_at/created_at alone,
// so replayed grants never duplicate rows or reset the original start.
func (r *enrollmentRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	const q = `
INSERT INTO enrollments (
  id, user_id, track_id, start_at, end_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (user_id, track_id) DO UPDATE SET
  end_at=$5, updated_at=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.TrackID, e.StartAt, e.EndAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	metrics.IncEnrollment("granted")
	return nil
}

const enrollmentCols = `id, user_id, track_id, start_at, end_at, created_at, updated_at`

func (r *enrollmentRepo) Find(ctx context.Context, tx repository.Tx, userID, trackID string) (*model.Enrollment, error) {
	const q = `SELECT ` + enrollmentCols + ` FROM enrollments WHERE user_id=$1 AND track_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, trackID)
	if err != nil {
		return nil, err
	}

	e := &model.Enrollment{}
	if err := row.Scan(&e.ID, &e.UserID, &e.TrackID, &e.StartAt, &e.EndAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	const q = `SELECT ` + enrollmentCols + ` FROM enrollments WHERE user_id=$1 ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e := new(model.Enrollment)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TrackID, &e.StartAt, &e.EndAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete is idempotent: removing an enrollment that does not exist is fine.
func (r *enrollmentRepo) Delete(ctx context.Context, tx repository.Tx, userID, trackID string) error {
	const q = `DELETE FROM enrollments WHERE user_id=$1 AND track_id=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, trackID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() > 0 {
		metrics.IncEnrollment("revoked")
	}
	return nil
}
