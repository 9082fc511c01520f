package model

import (
	"time"

	"lingua-billing/internal/domain"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"   // requested; awaiting gateway confirmation
	RefundStatusCompleted RefundStatus = "completed" // confirmed via webhook
	RefundStatusApproved  RefundStatus = "approved"  // confirmed synchronously by the gateway
)

// Refund records one refund/cancellation event against a payment.
// At most one refund per payment may reach a final status.
type Refund struct {
	ID         string // UUID
	PaymentID  string
	ExternalID *string // gateway refund id, if the gateway assigned one
	Status     RefundStatus
	Amount     int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Final reports whether the refund has been confirmed.
func (s RefundStatus) Final() bool {
	return s == RefundStatusCompleted || s == RefundStatusApproved
}

// NewRefund constructs a pending refund for a payment.
func NewRefund(id, paymentID string, amount int64) (*Refund, error) {
	if id == "" || paymentID == "" || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Refund{
		ID:        id,
		PaymentID: paymentID,
		Status:    RefundStatusPending,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
