package model

import (
	"time"

	"lingua-billing/internal/domain"
)

// Enrollment grants one user access to one track. (UserID, TrackID) is
// unique in storage; granting twice updates the existing row.
type Enrollment struct {
	ID      string // UUID
	UserID  string
	TrackID string
	StartAt time.Time
	// EndAt marks subscription expiry (+1 month monthly, +12 yearly).
	// Nil means no expiry (one-off purchase).
	EndAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEnrollment constructs an enrollment starting now and expiring after
// periodMonths months. periodMonths <= 0 defaults to yearly (12).
func NewEnrollment(id, userID, trackID string, periodMonths int) (*Enrollment, error) {
	if id == "" || userID == "" || trackID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if periodMonths <= 0 {
		periodMonths = 12
	}
	now := time.Now()
	end := now.AddDate(0, periodMonths, 0)
	return &Enrollment{
		ID:        id,
		UserID:    userID,
		TrackID:   trackID,
		StartAt:   now,
		EndAt:     &end,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
