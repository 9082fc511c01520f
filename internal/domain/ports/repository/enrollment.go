package repository

import (
	"context"

	"lingua-billing/internal/domain/model"
)

type EnrollmentRepository interface {
	// Upsert keyed by (user_id, track_id): creating an enrollment that
	// already exists updates end_at and leaves start_at/created_at alone.
	Upsert(ctx context.Context, tx Tx, e *model.Enrollment) error
	Find(ctx context.Context, tx Tx, userID, trackID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Enrollment, error)
	// Delete removes the enrollment if present. Deleting a missing row is
	// not an error.
	Delete(ctx context.Context, tx Tx, userID, trackID string) error
}
