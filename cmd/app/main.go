// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lingua-billing/internal/config"
	pg "lingua-billing/internal/infra/db/postgres"
	"lingua-billing/internal/infra/logging"
	"lingua-billing/internal/infra/metrics"
	"lingua-billing/internal/infra/payment/mercadopago"
	red "lingua-billing/internal/infra/redis"
	"lingua-billing/internal/infra/sched"
	"lingua-billing/internal/infra/web"
	"lingua-billing/internal/infra/worker"
	"lingua-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed validation)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	payRepo := pg.NewPaymentRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	enrollRepo := pg.NewEnrollmentRepo(pool)
	trackRepo := pg.NewTrackRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)

	// ---- Gateway ----
	mp := cfg.Payment.MercadoPago
	gateway := mercadopago.NewClient(mp.AccessToken, mp.BaseURL, mp.Sandbox, mp.Timeout)

	// ---- Use cases ----
	enrollUC := usecase.NewEnrollmentUseCase(enrollRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, refundRepo, userRepo, enrollUC, tm, logger)
	subUC := usecase.NewSubscriptionUseCase(payRepo, refundRepo, planRepo, trackRepo, enrollUC, gateway, tm, logger)

	// ---- Stale-pending scanner ----
	wpool := worker.NewPool(cfg.Reconciler.Workers, logger)
	wpool.Start(ctx)
	defer wpool.Stop()
	scanner := sched.NewPendingReconciler(
		reconcileUC, payRepo, gateway, wpool,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, mp.Timeout,
		logger,
	)
	go scanner.Start(ctx)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SecureCookie, cfg.Admin.CookieDomain, cfg.Admin.SessionTTL)
	srv := web.NewServer(
		subUC, reconcileUC, enrollUC, payRepo, refundRepo, gateway, auth,
		cfg.Admin.APIKey, mp.WebhookSecret, mp.Timeout,
		logger,
	)
	router := srv.Router()
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
