package observability

import (
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Mutation and outcome label values.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"

	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	mutations         *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mutations_total",
				Help: "Ledger create/update/delete calls by result.",
			},
			[]string{"op", "result"},
		),
		reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_reconciliations_total",
				Help: "Reconciliation outcomes by referenced document type.",
			},
			[]string{"document", "outcome"},
		),
		statementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_statement_duration_seconds",
				Help:    "Time spent building financial statements.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"statement"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
	}
}

// RecordMutation counts a ledger mutation.
func (m *Metrics) RecordMutation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// RecordReconciliation counts what happened to the referenced document.
func (m *Metrics) RecordReconciliation(outcome domain.ReconciliationOutcome) {
	if outcome.Status == domain.ReconcileNone {
		return
	}
	m.reconciliations.WithLabelValues(string(outcome.Document), string(outcome.Status)).Inc()
}

// ObserveStatement records how long a statement took to build.
func (m *Metrics) ObserveStatement(statement string, d time.Duration) {
	m.statementDuration.WithLabelValues(statement).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// Snapshot returns the counters behind GET /v1/metrics/ledger.
func (m *Metrics) Snapshot() *domain.LedgerMetrics {
	snap := &domain.LedgerMetrics{
		Creates:         int64(counterValue(m.mutations, OpCreate, ResultOK)),
		Updates:         int64(counterValue(m.mutations, OpUpdate, ResultOK)),
		Deletes:         int64(counterValue(m.mutations, OpDelete, ResultOK)),
		FailedMutations: int64(sumCounters(m.mutations, "result", ResultError)),
		ExternalErrors:  int64(sumCounters(m.externalErrors, "", "")),
		Period:          "all_time",
	}

	applied := sumCounters(m.reconciliations, "outcome", string(domain.ReconcileApplied))
	skipped := sumCounters(m.reconciliations, "outcome", string(domain.ReconcileSkipped))
	snap.ReconcileApplied = int64(applied)
	snap.ReconcileSkipped = int64(skipped)
	if total := applied + skipped; total > 0 {
		snap.ReconcileSkipRate = skipped / total
	}
	return snap
}

// counterValue extracts the current value of one labelled counter.
func counterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounters adds every child of cv whose label name equals value.
// An empty name sums all children.
func sumCounters(cv *prometheus.CounterVec, name, value string) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		if name != "" && !hasLabel(m, name, value) {
			continue
		}
		total += m.Counter.GetValue()
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue() == value
		}
	}
	return false
}
