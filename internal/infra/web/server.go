package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/logging"
	"lingua-billing/internal/usecase"
)

type Server struct {
	subUC       usecase.SubscriptionUseCase
	reconcileUC usecase.ReconcileUseCase
	enrollUC    usecase.EnrollmentUseCase
	payments    repository.PaymentRepository
	refunds     repository.RefundRepository
	gateway     adapter.PaymentGateway
	auth        *AuthManager

	apiKey         string
	webhookSecret  string
	gatewayTimeout time.Duration

	log *zerolog.Logger
}

func NewServer(
	subUC usecase.SubscriptionUseCase,
	reconcileUC usecase.ReconcileUseCase,
	enrollUC usecase.EnrollmentUseCase,
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	gateway adapter.PaymentGateway,
	auth *AuthManager,
	apiKey, webhookSecret string,
	gatewayTimeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Server{
		subUC:          subUC,
		reconcileUC:    reconcileUC,
		enrollUC:       enrollUC,
		payments:       payments,
		refunds:        refunds,
		gateway:        gateway,
		auth:           auth,
		apiKey:         apiKey,
		webhookSecret:  webhookSecret,
		gatewayTimeout: gatewayTimeout,
		log:            logger,
	}
}

// Router wires all routes. The webhook endpoint stays outside every auth
// layer: the gateway authenticates by signature, not by session.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/webhooks/mercadopago", s.webhookHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/subscriptions", s.subscriptionCreateHandler())
		r.Get("/payments/{id}", s.paymentGetHandler())
		r.Post("/payments/{id}/refund", s.refundRequestHandler())
		r.Get("/users/{id}/enrollments", s.enrollmentsListHandler())

		r.Post("/admin/login", s.adminLoginHandler())
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Post("/admin/logout", s.adminLogoutHandler())
			r.Get("/admin/revenue", s.adminRevenueHandler())
		})
	})

	return r
}

// requestLog stamps a trace id and the request start time, and logs the
// request line on the way out. Webhook bodies are not logged; they can
// carry payer data.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ctx = context.WithValue(ctx, ctxKeyStart{}, start)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// sessionMiddleware guards the admin API with the session JWT minted by
// the login handler.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || claims.Role != "admin" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
