package mercadopago

import (
	"strings"

	"lingua-billing/internal/domain/model"
)

// MapStatus translates Mercado Pago's status vocabulary into the internal
// payment status. Total and side-effect free: an unrecognized string
// degrades to pending instead of failing the whole webhook, so a vocabulary
// addition on the gateway side never drops events.
//
// "authorized" is preapproval vocabulary (recurring billing); it carries
// the same meaning as an approved payment.
func MapStatus(external string) model.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(external)) {
	case "approved", "authorized":
		return model.PaymentStatusApproved
	case "refunded":
		return model.PaymentStatusRefunded
	case "cancelled":
		return model.PaymentStatusCancelled
	case "rejected", "charged_back":
		return model.PaymentStatusFailed
	case "pending", "in_process", "in_mediation":
		return model.PaymentStatusPending
	default:
		return model.PaymentStatusPending
	}
}
