package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	Creates           int64   `json:"creates"`
	Updates           int64   `json:"updates"`
	Deletes           int64   `json:"deletes"`
	FailedMutations   int64   `json:"failedMutations"`
	ReconcileApplied  int64   `json:"reconcileApplied"`
	ReconcileSkipped  int64   `json:"reconcileSkipped"`
	ReconcileSkipRate float64 `json:"reconcileSkipRate"`
	ExternalErrors    int64   `json:"externalErrors"`
	Period            string  `json:"period"`
}
