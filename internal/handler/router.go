package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/infra/observability"
	"github.com/boddenberg/backoffice-ledger/internal/port"
	"github.com/boddenberg/backoffice-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// db may be nil, in which case /healthz only reports the API itself.
func NewRouter(
	ledger *service.LedgerService,
	statements *service.StatementService,
	sessions port.SessionVerifier,
	readOnlyRoles []string,
	db Pinger,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(db))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(sessions, logger))
		r.Use(RequireWriter(readOnlyRoles, logger))

		// =============================================
		// Ledger
		// =============================================
		r.Get("/transactions", listTransactionsHandler(ledger, logger))
		r.Post("/transactions", createTransactionHandler(ledger, logger))
		r.Put("/transactions", updateTransactionHandler(ledger, logger))
		r.Delete("/transactions", deleteTransactionHandler(ledger, logger))
		r.Get("/transactions/export", exportTransactionsHandler(ledger, logger))

		// =============================================
		// Statements
		// =============================================
		r.Get("/pnl", pnlHandler(statements, logger))
		r.Get("/balance-sheet", balanceSheetHandler(statements, logger))
		r.Post("/balance-sheet", createBalanceSheetItemHandler(statements, logger))
		r.Delete("/balance-sheet", deleteBalanceSheetItemHandler(statements, logger))
		r.Get("/balance-sheet/items", listBalanceSheetItemsHandler(statements, logger))

		// =============================================
		// Reference data & metrics
		// =============================================
		r.Get("/categories", categoriesHandler(statements, logger))
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "ledger-api", Status: "healthy", LastChecked: now},
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := db.Ping(ctx)
			s := domain.ServiceHealth{
				Name:        "sqlite",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				s.Status = "unhealthy"
				s.Error = err.Error()
			}
			services = append(services, s)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		status := http.StatusOK
		if overallStatus == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, metrics.Snapshot())
	}
}
