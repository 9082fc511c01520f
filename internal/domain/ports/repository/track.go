package repository

import (
	"context"

	"lingua-billing/internal/domain/model"
)

type TrackRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Track, error)
	// FindByIDs returns the tracks that exist among ids; callers compare
	// lengths to detect missing references.
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Track, error)
}
