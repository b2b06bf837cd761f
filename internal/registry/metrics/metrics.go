package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the registry module.
// Tracks operation outcomes and critical path durations.
type Metrics struct {
	Registrations    *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	Deletions        *prometheus.CounterVec
	DegradedReads    *prometheus.CounterVec
	RegisterDuration prometheus.Histogram
	VerifyDuration   prometheus.Histogram
}

// New creates a Metrics instance registered against reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bothub_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bothub_verifications_total",
			Help: "Bot authorization checks by result",
		}, []string{"result"}),
		Deletions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bothub_client_deletions_total",
			Help: "Client deletions by outcome",
		}, []string{"outcome"}),
		DegradedReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bothub_degraded_reads_total",
			Help: "Stats and listing reads that fell back to empty results after a storage error",
		}, []string{"operation"}),
		RegisterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bothub_register_duration_seconds",
			Help:    "Duration of Register operations",
			Buckets: latencyBuckets,
		}),
		VerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bothub_verify_duration_seconds",
			Help:    "Duration of Verify operations (remote agent critical path)",
			Buckets: latencyBuckets,
		}),
	}
}

// ObserveRegister records the outcome and duration of a registration.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveRegister(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerify records the result and duration of an authorization check.
func (m *Metrics) ObserveVerify(result string, start time.Time) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementDeletion(outcome string) {
	if m == nil {
		return
	}
	m.Deletions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDegradedRead(operation string) {
	if m == nil {
		return
	}
	m.DegradedReads.WithLabelValues(operation).Inc()
}
