package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/usecase"
)

// WebhookEvent is the notification body Mercado Pago posts: a type and the
// id of the resource that changed. Everything else requires a detail fetch.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Processable reports whether this event type drives reconciliation.
// Unknown types are acknowledged and ignored.
func (e WebhookEvent) Processable() bool {
	switch e.Type {
	case "payment", "refund", "chargeback", "merchant_order":
		return true
	default:
		return false
	}
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature over the event
// manifest (data id + type). Only enforced when a webhook secret is
// configured.
func VerifyWebhookSignature(secret, dataID, eventType, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(dataID + eventType))
	expected := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(expected, signature)
}

// ResolveUserID extracts the internal user id from a payment detail.
// The producer writes it to different places depending on code path:
// metadata.userId, external_reference, or metadata.user_id. First non-empty
// wins. The fallback chain is inherited producer inconsistency, not a
// guarantee that no fourth location exists.
func ResolveUserID(d *adapter.PaymentDetail) string {
	if v := d.Metadata.String("userId"); v != "" {
		return v
	}
	if d.ExternalReference != "" {
		return d.ExternalReference
	}
	return d.Metadata.String("user_id")
}

// ExtractItems normalizes metadata.items into payment items. Item type
// tokens arrive in Portuguese or English depending on producer; both fold
// into the canonical track kind. When the payload carries no item list but
// names a single track, one item is synthesized from the top-level fields.
func ExtractItems(d *adapter.PaymentDetail) []model.PaymentItem {
	raw, _ := d.Metadata["items"].([]interface{})
	items := make([]model.PaymentItem, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		im := model.Metadata(m)
		id := im.String("id")
		if id == "" {
			id = im.String("trackId")
		}
		if id == "" {
			continue
		}
		qty := im.Int("quantity")
		if qty <= 0 {
			qty = 1
		}
		items = append(items, model.PaymentItem{
			TrackID:  id,
			Title:    im.String("title"),
			Kind:     model.NormalizeTrackKind(im.String("type")),
			Price:    int64(im.Int("price")),
			Quantity: qty,
		})
	}
	if len(items) > 0 {
		return items
	}

	// Single-item fallback: some producers put the track directly in the
	// metadata bag instead of an items array.
	if trackID := d.Metadata.String("trackId"); trackID != "" {
		return []model.PaymentItem{{
			TrackID:  trackID,
			Title:    d.Metadata.String("title"),
			Price:    d.TransactionAmount,
			Quantity: 1,
		}}
	}
	return nil
}

// BuildReconcileInput folds a fetched payment detail into the normalized
// reconciliation input. Shared by the webhook handler and the stale-pending
// scanner so both paths produce identical events.
func BuildReconcileInput(d *adapter.PaymentDetail) usecase.ReconcileInput {
	return usecase.ReconcileInput{
		ExternalID:   d.ExternalID,
		UserID:       ResolveUserID(d),
		Status:       MapStatus(d.Status),
		Amount:       d.TransactionAmount,
		Items:        ExtractItems(d),
		Metadata:     d.Metadata,
		PeriodMonths: d.Metadata.Int("durationMonths"),
	}
}
