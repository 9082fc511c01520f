package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/metrics"
	"lingua-billing/internal/usecase"
)

type subscriptionCreateRequest struct {
	UserID     string   `json:"userId"`
	PayerEmail string   `json:"payerEmail"`
	PayerName  string   `json:"payerName"`
	TrackIDs   []string `json:"items"`
	PlanID     string   `json:"planId"`
	Amount     int64    `json:"amount"`
	Period     string   `json:"period"`
	CardToken  string   `json:"cardToken"`
	BackURL    string   `json:"backUrl"`
}

func (s *Server) subscriptionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, initPoint, err := s.subUC.Create(r.Context(), usecase.CreateSubscriptionInput{
			UserID:     req.UserID,
			PayerEmail: req.PayerEmail,
			PayerName:  req.PayerName,
			TrackIDs:   req.TrackIDs,
			PlanID:     req.PlanID,
			Amount:     req.Amount,
			Period:     model.BillingPeriod(req.Period),
			CardToken:  req.CardToken,
			BackURL:    req.BackURL,
		})
		if err != nil {
			s.writeUseCaseError(w, err)
			return
		}

		metrics.IncPayment(string(p.Status))
		if p.Status.AccessGranting() {
			metrics.AddPaymentRevenue(p.Amount)
		}

		response := struct {
			Payment   *model.Payment `json:"payment"`
			InitPoint string         `json:"initPoint,omitempty"`
		}{Payment: p, InitPoint: initPoint}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(response)
	}
}

func (s *Server) refundRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID := chi.URLParam(r, "id")

		var req struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		refund, err := s.subUC.RequestRefund(r.Context(), req.UserID, paymentID)
		if err != nil {
			metrics.IncRefund("rejected")
			s.writeUseCaseError(w, err)
			return
		}

		metrics.IncRefund("requested")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(refund)
	}
}

func (s *Server) paymentGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := s.payments.FindByID(r.Context(), repository.NoTX, id)
		if err != nil {
			s.writeUseCaseError(w, err)
			return
		}
		items, err := s.payments.ListItems(r.Context(), repository.NoTX, p.ID)
		if err != nil {
			s.writeUseCaseError(w, err)
			return
		}
		p.Items = items

		// The UI's "processing" view shows refund state alongside the payment.
		refunds, err := s.refunds.ListByPayment(r.Context(), repository.NoTX, p.ID)
		if err != nil {
			s.writeUseCaseError(w, err)
			return
		}

		response := struct {
			*model.Payment
			Refunds []*model.Refund `json:"refunds"`
		}{Payment: p, Refunds: refunds}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func (s *Server) enrollmentsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")

		enrollments, err := s.enrollUC.ListByUser(r.Context(), userID)
		if err != nil {
			s.writeUseCaseError(w, err)
			return
		}

		response := struct {
			Data []*model.Enrollment `json:"data"`
		}{Data: enrollments}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// adminLoginHandler exchanges the static admin API key for a short-lived
// session JWT (set as a cookie and returned in the body).
func (s *Server) adminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		key := bearerToken(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if key != s.apiKey {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		token, err := s.auth.Mint(w)
		if err != nil {
			s.log.Error().Err(err).Msg("mint session token")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	}
}

func (s *Server) adminLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) adminRevenueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// ?period=week|month|year narrows the response to one bucket.
		if period := r.URL.Query().Get("period"); period != "" {
			if period != "week" && period != "month" && period != "year" {
				writeError(w, http.StatusBadRequest, "period must be week, month or year")
				return
			}
			sum, err := s.payments.SumApprovedByPeriod(ctx, repository.NoTX, period)
			if err != nil {
				s.writeUseCaseError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]int64{period: sum})
			return
		}

		var revenue struct {
			Week  int64 `json:"week"`
			Month int64 `json:"month"`
			Year  int64 `json:"year"`
		}
		var err error
		if revenue.Week, err = s.payments.SumApprovedByPeriod(ctx, repository.NoTX, "week"); err != nil {
			s.writeUseCaseError(w, err)
			return
		}
		if revenue.Month, err = s.payments.SumApprovedByPeriod(ctx, repository.NoTX, "month"); err != nil {
			s.writeUseCaseError(w, err)
			return
		}
		if revenue.Year, err = s.payments.SumApprovedByPeriod(ctx, repository.NoTX, "year"); err != nil {
			s.writeUseCaseError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(revenue)
	}
}

// writeUseCaseError maps domain errors to HTTP statuses. Anything unmapped
// is a 500 with a generic body; the real cause goes to the log only.
func (s *Server) writeUseCaseError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSONError(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}
	var tnf *domain.TracksNotFoundError
	if errors.As(err, &tnf) {
		writeJSONError(w, http.StatusNotFound, map[string]interface{}{
			"error":  "tracks not found",
			"tracks": tnf.IDs,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrDuplicateRefund):
		writeError(w, http.StatusConflict, "payment already refunded")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingItems):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONError(w, status, map[string]interface{}{"error": msg})
}

func writeJSONError(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
