package adapter

import (
	"context"

	"lingua-billing/internal/domain/model"
)

// PaymentDetail is the provider-agnostic view of a fetched payment or
// recurring subscription instance.
type PaymentDetail struct {
	ExternalID        string
	Status            string // raw gateway vocabulary; map via the status mapper
	TransactionAmount int64  // minor units
	ExternalReference string
	Metadata          model.Metadata
}

// PreapprovalRequest describes the recurring-billing authorization to create.
type PreapprovalRequest struct {
	PayerEmail        string
	Reason            string // human-readable description shown on the gateway page
	ExternalReference string
	Amount            int64  // minor units per charge
	FrequencyType     string // "months"
	Frequency         int    // 1 monthly, 12 yearly
	// CardToken, when set, requests immediate authorization (transparent
	// checkout) instead of a redirect flow.
	CardToken string
	BackURL   string
}

// PreapprovalResult is the gateway response for a created authorization.
type PreapprovalResult struct {
	ID              string
	Status          string // "authorized" | "pending" | other
	InitPoint       string
	SandboxInitPoint string
}

// PaymentGateway is the hex port for the external billing provider.
type PaymentGateway interface {
	Name() string

	// GetPayment fetches the full detail for a gateway payment id. Webhook
	// bodies only carry the id; everything else comes from this call.
	GetPayment(ctx context.Context, externalID string) (*PaymentDetail, error)

	// CreatePreapproval submits a recurring-billing authorization.
	CreatePreapproval(ctx context.Context, req PreapprovalRequest) (*PreapprovalResult, error)

	// CancelPreapproval cancels a subscription on the provider side. Used by
	// the refund-request flow; the final state lands via webhook.
	CancelPreapproval(ctx context.Context, externalID string) error
}
