package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for enrollment and recognition
type Metrics struct {
	enrollmentsTotal   *prometheus.CounterVec
	facesDetectedTotal *prometheus.CounterVec
	matchesTotal       *prometheus.CounterVec
	ledgerWritesTotal  *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the attendance metrics. A nil registry
// leaves them unregistered, which tests and the CLI use.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if registry != nil {
		if err := registry.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_enrollments_total",
			Help: "Total number of enrollment attempts",
		},
		[]string{"status"}, // status: success, no_face, duplicate, error
	)

	m.facesDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_faces_detected_total",
			Help: "Total number of faces detected in submitted images",
		},
		[]string{"operation"}, // operation: enroll, mark
	)

	m.matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_matches_total",
			Help: "Total number of face match decisions",
		},
		[]string{"outcome"}, // outcome: identified, unknown
	)

	m.ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_ledger_writes_total",
			Help: "Total number of attendance batch writes",
		},
		[]string{"status"}, // status: success, error
	)

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rollcall_stage_duration_seconds",
			Help: "Time spent in each pipeline stage",
			// 5ms to ~10s
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"stage"}, // stage: detect, embed, match, record
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.enrollmentsTotal.Describe(ch)
	m.facesDetectedTotal.Describe(ch)
	m.matchesTotal.Describe(ch)
	m.ledgerWritesTotal.Describe(ch)
	m.stageDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.enrollmentsTotal.Collect(ch)
	m.facesDetectedTotal.Collect(ch)
	m.matchesTotal.Collect(ch)
	m.ledgerWritesTotal.Collect(ch)
	m.stageDuration.Collect(ch)
}

// RecordEnrollment records the outcome of one enrollment
func (m *Metrics) RecordEnrollment(status string) {
	m.enrollmentsTotal.WithLabelValues(status).Inc()
}

// RecordFacesDetected adds n detected faces for an operation
func (m *Metrics) RecordFacesDetected(operation string, n int) {
	m.facesDetectedTotal.WithLabelValues(operation).Add(float64(n))
}

// RecordMatch records one match decision
func (m *Metrics) RecordMatch(identified bool) {
	outcome := "unknown"
	if identified {
		outcome = "identified"
	}
	m.matchesTotal.WithLabelValues(outcome).Inc()
}

// RecordLedgerWrite records the outcome of one batch write
func (m *Metrics) RecordLedgerWrite(status string) {
	m.ledgerWritesTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took, in seconds
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}
