package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "claimgate/internal/admin"
	"claimgate/internal/batch"
	caphandler "claimgate/internal/capability/handler"
	claimhandler "claimgate/internal/claim/handler"
	claimmetrics "claimgate/internal/claim/metrics"
	claimservice "claimgate/internal/claim/service"
	claimstore "claimgate/internal/claim/store"
	liststore "claimgate/internal/listing/store"
	"claimgate/internal/notify"
	"claimgate/internal/platform/config"
	"claimgate/internal/platform/httpserver"
	"claimgate/internal/platform/logger"
	platformredis "claimgate/internal/platform/redis"
	"claimgate/internal/token"
	httptransport "claimgate/internal/transport/http"
	"claimgate/internal/vendorsession"
	"claimgate/pkg/platform/audit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Storage: Postgres when configured, in-memory otherwise (dev mode).
	var listings liststore.Store = liststore.NewInMemoryStore()
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("opening postgres", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("pinging postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		listings = liststore.NewPostgres(db)
	}

	// Consumed-token store: Redis when configured, in-memory otherwise.
	var consumed claimstore.ConsumedTokenStore = claimstore.NewInMemoryConsumedStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		consumed = claimstore.NewRedisConsumedStore(redisClient.Client)
	}

	// Audit: Kafka when brokers are configured, otherwise disabled.
	var auditSink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(context.Background(), cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("connecting to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
	}
	auditPub := audit.NewPublisher(auditSink)

	codec := token.NewCodec(cfg.ClaimSigningSecret)
	metrics := claimmetrics.New()
	claims := claimservice.New(listings, consumed, codec, claimservice.Config{
		ClaimTokenTTL:        cfg.ClaimTokenTTL,
		OptOutTokenTTL:       cfg.OptOutTokenTTL,
		VendorAccessTokenTTL: cfg.VendorAccessTokenTTL,
	},
		claimservice.WithLogger(log),
		claimservice.WithMetrics(metrics),
		claimservice.WithAuditPublisher(auditPub),
	)
	sessions := vendorsession.New(codec, cfg.JWTSigningKey, "claimgate", "claimgate-vendors", cfg.SessionTTL)

	links := notify.NewLinkBuilder(cfg.BaseURL)
	notifier := notify.NewLogNotifier(log)
	campaign := batch.NewCampaign(listings, claims, links, notifier,
		batch.New(cfg.BatchConcurrency, log), auditPub, log)

	router := httptransport.NewRouter(log,
		claimhandler.New(claims, sessions, sessions, log),
		caphandler.New(listings, sessions, cfg.AdminToken, log),
		adminhandler.New(campaign, cfg.AdminToken, log),
	)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting claimgate", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
