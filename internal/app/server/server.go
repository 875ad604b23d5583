package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"pfm/internal/domain/audit"
	"pfm/internal/domain/consent"
	"pfm/internal/domain/retention"
	"pfm/internal/lifecycle"
	"pfm/internal/platform/config"
	"pfm/internal/platform/crypto"
	"pfm/internal/platform/db"
	"pfm/internal/platform/metrics"
	privacyhandler "pfm/internal/transport/http/handlers/privacy"
	"pfm/internal/transport/http/middleware"
)

// Run wires the whole governance service and blocks until shutdown.
func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			slog.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	catalog, err := consent.NewCatalog()
	if err != nil {
		slog.Error("consent catalog invalid", "err", err)
		os.Exit(1)
	}

	cryptoSvc, err := crypto.New(cfg.ExportEncryptionKey)
	if err != nil {
		slog.Error("export encryption key invalid", "err", err)
		os.Exit(1)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	auditSvc := audit.New(audit.NewPGStore(pool))
	ledger := consent.NewLedger(catalog, consent.NewPGStore(pool), auditSvc, collector)

	retentionStore := retention.NewPGStore(pool)
	policies := retention.NewPolicyStore(retentionStore, auditSvc)
	engine := retention.NewEngine(policies, retention.NewPGInventory(pool), retentionStore, collector, cfg.PurgeInterval)

	hub := lifecycle.NewHub()
	scheduler := retention.NewScheduler(engine, retentionStore, hub, auditSvc, collector, retention.SchedulerConfig{
		CheckInterval:  cfg.PurgeCheckInterval,
		ExpiryInterval: cfg.ExpiryInterval,
		ExpireFunc: func(ctx context.Context) error {
			_, err := ledger.ProcessExpired(ctx)
			return err
		},
	})
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if collector != nil {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		handler := privacyhandler.NewHandler(catalog, ledger, policies, scheduler, retentionStore, auditSvc, cryptoSvc, hub, cfg.ExportDir)
		handler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "err", err)
		}
	}()

	slog.Info("privacy governance server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
