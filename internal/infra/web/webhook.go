package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/infra/logging"
	"lingua-billing/internal/infra/metrics"
	"lingua-billing/internal/infra/payment/mercadopago"
)

// webhookResponse is what the gateway sees. The body distinguishes outcomes;
// the HTTP status never does.
type webhookResponse struct {
	Status string `json:"status"` // ok | ignored | error
	Error  string `json:"error,omitempty"`
}

// webhookHandler receives Mercado Pago notifications. It ALWAYS answers
// 200: a non-2xx makes the gateway retry with backoff and eventually
// disable the endpoint, which is strictly worse than logging the failure
// and letting the stale-pending scanner pick the payment up later.
func (s *Server) webhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev mercadopago.WebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			s.log.Warn().Err(err).Msg("webhook: malformed body")
			metrics.IncWebhookEvent("unknown", "malformed")
			ackWebhook(w, webhookResponse{Status: "error", Error: "malformed body"})
			return
		}

		if s.webhookSecret != "" {
			sig := r.Header.Get("X-Signature")
			if !mercadopago.VerifyWebhookSignature(s.webhookSecret, ev.Data.ID, ev.Type, sig) {
				s.log.Warn().Str("type", ev.Type).Str("data_id", ev.Data.ID).Msg("webhook: bad signature")
				metrics.IncWebhookEvent(ev.Type, "bad_signature")
				ackWebhook(w, webhookResponse{Status: "error", Error: "invalid signature"})
				return
			}
		}

		if !ev.Processable() || ev.Data.ID == "" {
			metrics.IncWebhookEvent(ev.Type, "ignored")
			ackWebhook(w, webhookResponse{Status: "ignored"})
			return
		}

		// The notification only names the payment; the detail fetch is bounded
		// so a slow gateway cannot hold the webhook worker hostage.
		fctx, cancel := context.WithTimeout(r.Context(), s.gatewayTimeout)
		defer cancel()
		detail, err := s.gateway.GetPayment(fctx, ev.Data.ID)
		if err != nil {
			s.log.Error().Err(err).Str("data_id", ev.Data.ID).Msg("webhook: detail fetch failed")
			metrics.IncWebhookEvent(ev.Type, "fetch_failed")
			ackWebhook(w, webhookResponse{Status: "error", Error: "payment detail unavailable"})
			return
		}

		in := mercadopago.BuildReconcileInput(detail)
		ctx := logging.WithPaymentID(r.Context(), in.ExternalID)
		if in.UserID != "" {
			ctx = logging.WithUserID(ctx, in.UserID)
		}
		p, err := s.reconcileUC.Reconcile(ctx, in)
		if err != nil {
			// ErrUserNotFound here means the producer wrote the user id
			// somewhere we do not look, or to no field at all. Loud log so
			// it is found before the payment goes stale.
			if errors.Is(err, domain.ErrUserNotFound) {
				s.log.Error().Str("external_id", in.ExternalID).Msg("webhook: no resolvable user id on payment")
			} else {
				s.log.Error().Err(err).Str("external_id", in.ExternalID).Msg("webhook: reconcile failed")
			}
			metrics.IncWebhookEvent(ev.Type, "reconcile_failed")
			ackWebhook(w, webhookResponse{Status: "error", Error: err.Error()})
			return
		}

		metrics.IncWebhookEvent(ev.Type, "ok")
		metrics.IncPayment(string(p.Status))
		if p.Status.AccessGranting() {
			metrics.AddPaymentRevenue(p.Amount)
		}
		s.log.Info().
			Str("type", ev.Type).
			Str("external_id", in.ExternalID).
			Str("status", string(p.Status)).
			Dur("elapsed", time.Since(startFrom(r))).
			Msg("webhook processed")
		ackWebhook(w, webhookResponse{Status: "ok"})
	}
}

func ackWebhook(w http.ResponseWriter, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

type ctxKeyStart struct{}

func startFrom(r *http.Request) time.Time {
	if t, ok := r.Context().Value(ctxKeyStart{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
