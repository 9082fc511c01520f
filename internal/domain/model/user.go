package model

import "time"

// User is read-only reference data here; account management lives in the
// web application, not in the billing core.
type User struct {
	ID        string // UUID
	Email     string
	Name      string
	CreatedAt time.Time
}
