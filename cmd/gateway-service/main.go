package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/sokinpay-gateway/internal/config"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/audit"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/host"
	gatewayhttp "github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/http"
	gatewaykafka "github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/kafka"
	gatewaypg "github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/postgres"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/sokin"
	"github.com/dmehra2102/sokinpay-gateway/pkg/idempotency"
	"github.com/dmehra2102/sokinpay-gateway/pkg/logging"
	"github.com/dmehra2102/sokinpay-gateway/pkg/metrics"
	"github.com/dmehra2102/sokinpay-gateway/pkg/outbox"
	"github.com/dmehra2102/sokinpay-gateway/pkg/shutdown"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}
	checkoutStatus, _ := cfg.Status()

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, "sokinpay-gateway", cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()
	metrics.Register()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := gatewaypg.Migrate(ctx, pool); err != nil {
		log.Error("pg migrate failed", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable at start", "addr", cfg.RedisAddr, "err", err)
	}
	guard := idempotency.NewStore(rdb, "sokinpay:checkout", cfg.CheckoutGuardTTL)
	dedupe := idempotency.NewStore(rdb, "sokinpay:idem", cfg.DedupeTTL)

	// Outbox relay
	writer := gatewaykafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	repo := gatewaypg.NewRepository(log, pool)
	store := gatewaypg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.Topics.Events)
	relay := outbox.NewRelay(log, store, dispatch, "sokinpay-gateway-relay")

	// Gateway core
	auditLog, auditFile := audit.Open(audit.DefaultSource, cfg.AuditLog, os.Stderr)
	defer auditFile.Close()
	client := sokin.NewClient(log, cfg.APIURL, cfg.APIKey, cfg.RemoteTimeout)
	settings := application.Settings{
		PaymentMethod:    domain.PaymentMethodSokin,
		CheckoutURL:      cfg.CheckoutURL,
		CheckoutStatus:   checkoutStatus,
		OrderPayURL:      cfg.Host.OrderPayURL,
		OrderReceivedURL: cfg.Host.OrderReceivedURL,
	}
	reconciler := application.NewReconciler(log, repo, client, host.NewRequests(log, repo), auditLog, settings)
	refunds := application.NewRefundCoordinator(log, repo, client)

	gateway := gatewayhttp.Gateway{
		ID:          domain.PaymentMethodSokin,
		Title:       cfg.Title,
		Description: cfg.Description,
		Enabled:     cfg.Enabled,
	}
	limiter := gatewayhttp.NewIPRateLimiter(cfg.CallbackRPS, cfg.CallbackBurst)
	handler := gatewayhttp.NewHandler(log, gateway, repo, reconciler, refunds, guard, limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RemoteTimeout + 10*time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	consumer := gatewaykafka.NewRefundConsumer(log, cfg.KafkaBrokers, cfg.Topics.Refunds, cfg.Topics.RefundGroup, refunds, dedupe)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("refund consumer stopped", "err", err)
			cancel()
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "enabled", cfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("sokinpay-gateway shutdown complete")
}
