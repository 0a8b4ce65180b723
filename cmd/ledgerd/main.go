package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/config"
	"github.com/boddenberg/backoffice-ledger/internal/handler"
	"github.com/boddenberg/backoffice-ledger/internal/infra/cache"
	"github.com/boddenberg/backoffice-ledger/internal/infra/client"
	"github.com/boddenberg/backoffice-ledger/internal/infra/events"
	"github.com/boddenberg/backoffice-ledger/internal/infra/observability"
	"github.com/boddenberg/backoffice-ledger/internal/infra/resilience"
	"github.com/boddenberg/backoffice-ledger/internal/infra/session"
	"github.com/boddenberg/backoffice-ledger/internal/infra/sqlite"
	"github.com/boddenberg/backoffice-ledger/internal/port"
	"github.com/boddenberg/backoffice-ledger/internal/reconcile"
	"github.com/boddenberg/backoffice-ledger/internal/service"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("database_path", cfg.DatabasePath),
		zap.Bool("remote_documents", cfg.DocumentsAPIURL != ""),
		zap.Bool("events_enabled", cfg.AMQPURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Strings("read_only_roles", cfg.ReadOnlyRoles),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, "backoffice-ledger", cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	db, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	// --- Documents ---
	var invoices port.InvoiceStore = db
	var slips port.SalarySlipStore = db
	if cfg.DocumentsAPIURL != "" {
		logger.Info("using HTTP document service", zap.String("url", cfg.DocumentsAPIURL))
		docs := client.NewDocumentsClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.DocumentsAPIURL,
			resilience.NewCircuitBreaker("documents", logger),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			metrics,
			logger,
		)
		invoices = docs
		slips = docs
	} else {
		logger.Info("using local database for invoices and salary slips")
	}

	// --- Events ---
	var publisher port.EventPublisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqp, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("failed to connect event broker", zap.Error(err))
		}
		defer amqp.Close()
		publisher = amqp
	} else {
		logger.Warn("events: AMQP_URL not configured, ledger events are not published")
	}

	// --- Sessions ---
	verifier, err := session.NewJWTVerifier(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("failed to init session verifier", zap.Error(err))
	}

	// --- Services ---
	registry := taxonomy.Default()
	engine := reconcile.NewEngine(invoices, slips, logger)

	ledgerSvc := service.NewLedgerService(
		db,
		db,
		engine,
		registry,
		publisher,
		cache.New[string](ctx, cfg.IdempotencyTTL),
		metrics,
		nil,
		logger,
	)
	statementSvc := service.NewStatementService(
		db,
		invoices,
		slips,
		db,
		registry,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics,
		nil,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, statementSvc, verifier, cfg.ReadOnlyRoles, db, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
