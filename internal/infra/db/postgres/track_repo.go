package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
)

var _ repository.TrackRepository = (*trackRepo)(nil)

type trackRepo struct{ pool *pgxpool.Pool }

func NewTrackRepo(pool *pgxpool.Pool) *trackRepo {
	return &trackRepo{pool: pool}
}

const trackCols = `id, title, kind, price, created_at`

func (r *trackRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Track, error) {
	const q = `SELECT ` + trackCols + ` FROM tracks WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	t := &model.Track{}
	if err := row.Scan(&t.ID, &t.Title, &t.Kind, &t.Price, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *trackRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT ` + trackCols + ` FROM tracks WHERE id = ANY($1);`
	rows, err := queryRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Track
	for rows.Next() {
		t := new(model.Track)
		if err := rows.Scan(&t.ID, &t.Title, &t.Kind, &t.Price, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}
