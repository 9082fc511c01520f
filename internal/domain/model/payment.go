package model

import (
	"time"

	"lingua-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // gateway still processing, or redirect not completed
	PaymentStatusApproved  PaymentStatus = "approved"  // money captured; access granted
	PaymentStatusRefunded  PaymentStatus = "refunded"  // money returned; access revoked
	PaymentStatusCancelled PaymentStatus = "cancelled" // cancelled before capture; access revoked
	PaymentStatusFailed    PaymentStatus = "failed"    // rejected / charged back; access never granted
)

// Payment mirrors one external gateway payment or recurring subscription
// instance. ExternalID is the gateway's id and is unique: every
// webhook-driven upsert keys on it, which is what makes redelivery safe.
type Payment struct {
	ID         string // UUID
	UserID     string // UUID
	ExternalID string // gateway payment/preapproval id (unique)
	Status     PaymentStatus
	Amount     int64 // minor currency units (cents)
	// Metadata is a JSONB bag of gateway-specific fields: payment method,
	// installments, frequency, period, refundWindowDays, init_point URLs,
	// items snapshot. Reconciliation merges into it, never replaces it.
	Metadata  Metadata
	Items     []PaymentItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentItem is one line of a payment, snapshotting the track it grants.
// Items are owned by their payment and recreated wholesale on every
// reconciliation; they are a snapshot, not a ledger.
type PaymentItem struct {
	ID        string // UUID
	PaymentID string
	TrackID   string
	Title     string
	Kind      TrackKind
	Price     int64 // minor units
	Quantity  int
}

// NewPayment validates and constructs a payment record.
func NewPayment(id, userID, externalID string, status PaymentStatus, amount int64, meta Metadata) (*Payment, error) {
	if id == "" || userID == "" || externalID == "" || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if meta == nil {
		meta = Metadata{}
	}
	now := time.Now()
	return &Payment{
		ID:         id,
		UserID:     userID,
		ExternalID: externalID,
		Status:     status,
		Amount:     amount,
		Metadata:   meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AccessGranting reports whether this status carries content access.
func (s PaymentStatus) AccessGranting() bool { return s == PaymentStatusApproved }

// AccessRevoking reports whether this status strips content access.
func (s PaymentStatus) AccessRevoking() bool {
	return s == PaymentStatusRefunded || s == PaymentStatusCancelled
}
