package model

import (
	"strings"
	"time"
)

type TrackKind string

const (
	TrackKindCourse  TrackKind = "course"
	TrackKindJourney TrackKind = "journey"
)

// Track is one purchasable content unit (a course or a journey of courses).
// Read-only from this module's perspective.
type Track struct {
	ID        string // UUID
	Title     string
	Kind      TrackKind
	Price     int64 // minor units
	CreatedAt time.Time
}

// NormalizeTrackKind folds the type tokens different producers emit —
// Portuguese from the legacy content pipeline, English from the newer one —
// into the canonical kind. Unknown tokens are kept lowercased rather than
// rejected, so a third producer variant does not fail the whole event.
func NormalizeTrackKind(raw string) TrackKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "curso", "course":
		return TrackKindCourse
	case "jornada", "journey":
		return TrackKindJourney
	default:
		return TrackKind(strings.ToLower(strings.TrimSpace(raw)))
	}
}
