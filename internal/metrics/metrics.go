package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "carbonsync"
)

// Status values exported by ConnectorStatus. Exactly one is set to 1 per
// connector at any time.
var connectorStates = []string{"disconnected", "authenticating", "connected", "error"}

var (
	fetchDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

	// Connector lifecycle
	ConnectorStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connector_status",
		Help:      "Current lifecycle status of a connector (1 for the active status).",
	}, []string{"kind", "connector_id", "status"})

	ConnectorAuthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connector_auth_total",
		Help:      "Count of connector authentication outcomes.",
	}, []string{"kind", "result"})

	ConnectorFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "connector_fetch_duration_seconds",
		Help:      "Time taken to fetch raw data from a provider.",
		Buckets:   fetchDurationBuckets,
	}, []string{"kind"})

	ConnectorFetchRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connector_fetch_records",
		Help:      "Number of records returned by the last successful fetch.",
	}, []string{"kind", "connector_id"})

	ConnectorEmissionsKg = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connector_emissions_kg",
		Help:      "Total CO2e in kilograms from the last emissions calculation.",
	}, []string{"kind", "connector_id"})

	// Batch runner
	BatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_runs_total",
		Help:      "Count of batch calculation runs.",
	}, []string{"status"})

	BatchLastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "batch_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last batch run without connector errors.",
	})
)

// SetConnectorStatus marks status as the active state of one connector.
func SetConnectorStatus(kind, connectorID, status string) {
	for _, s := range connectorStates {
		v := 0.0
		if s == status {
			v = 1
		}
		ConnectorStatus.WithLabelValues(kind, connectorID, s).Set(v)
	}
}

// ObserveAuth records an authentication outcome once it leaves the
// authenticating state.
func ObserveAuth(kind string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	ConnectorAuthTotal.WithLabelValues(kind, result).Inc()
}

// ObserveTransition updates the status gauge and, when a transition leaves
// the authenticating state, the auth outcome counter.
func ObserveTransition(kind, connectorID, prev, next string) {
	SetConnectorStatus(kind, connectorID, next)
	if prev == "authenticating" && next != "authenticating" {
		ObserveAuth(kind, next == "connected")
	}
}

func ObserveFetch(kind, connectorID string, d time.Duration, records int, err error) {
	ConnectorFetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err == nil {
		ConnectorFetchRecords.WithLabelValues(kind, connectorID).Set(float64(records))
	}
}

func SetEmissions(kind, connectorID string, totalKg float64) {
	ConnectorEmissionsKg.WithLabelValues(kind, connectorID).Set(totalKg)
}

func ObserveBatch(failed int, finishedAt time.Time) {
	status := "success"
	if failed > 0 {
		status = "partial"
	}
	BatchRunsTotal.WithLabelValues(status).Inc()
	if failed == 0 {
		BatchLastSuccessTimestamp.Set(float64(finishedAt.Unix()))
	}
}
