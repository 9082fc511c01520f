// File: internal/usecase/enrollment_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ EnrollmentUseCase = (*enrollmentUC)(nil)

// EnrollmentUseCase is the access grant/revoke engine. Both the webhook
// reconciliation path and the synchronous-authorization path in the
// subscription initiator go through it, so enrollment rows always have the
// same shape no matter which path produced them.
type EnrollmentUseCase interface {
	// GrantAccess upserts one enrollment per item, keyed by (user, track).
	// end date = now + periodMonths months (12 when periodMonths <= 0);
	// start date is set only when the row is created.
	//
	// Items run independently: one failing upsert does not skip the rest.
	// All failures are aggregated into the returned error.
	GrantAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem, periodMonths int) error
	// RevokeAccess deletes the enrollment for each (user, track) pair.
	// Missing rows are not an error; revoking twice is a no-op.
	RevokeAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem) error
	ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error)
}

type enrollmentUC struct {
	enrollments repository.EnrollmentRepository
	log         *zerolog.Logger
}

func NewEnrollmentUseCase(enrollments repository.EnrollmentRepository, logger *zerolog.Logger) *enrollmentUC {
	return &enrollmentUC{enrollments: enrollments, log: logger}
}

func (u *enrollmentUC) GrantAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem, periodMonths int) error {
	var errs []error
	for _, item := range items {
		e, err := model.NewEnrollment(uuid.NewString(), userID, item.TrackID, periodMonths)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := u.enrollments.Upsert(ctx, tx, e); err != nil {
			u.log.Error().Err(err).Str("user_id", userID).Str("track_id", item.TrackID).Msg("enrollment upsert failed")
			errs = append(errs, err)
			continue
		}
		u.log.Debug().Str("user_id", userID).Str("track_id", item.TrackID).Int("period_months", periodMonths).Msg("access granted")
	}
	return errors.Join(errs...)
}

func (u *enrollmentUC) RevokeAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem) error {
	var errs []error
	for _, item := range items {
		if err := u.enrollments.Delete(ctx, tx, userID, item.TrackID); err != nil {
			u.log.Error().Err(err).Str("user_id", userID).Str("track_id", item.TrackID).Msg("enrollment delete failed")
			errs = append(errs, err)
			continue
		}
		u.log.Debug().Str("user_id", userID).Str("track_id", item.TrackID).Msg("access revoked")
	}
	return errors.Join(errs...)
}

func (u *enrollmentUC) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	return u.enrollments.ListByUser(ctx, repository.NoTX, userID)
}
