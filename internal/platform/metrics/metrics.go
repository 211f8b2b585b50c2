package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CallbacksTotal          *prometheus.CounterVec
	DonationsTotal          *prometheus.CounterVec
	DuplicateDeliveries     prometheus.Counter
	GuardianshipTransitions *prometheus.CounterVec
	SubscriptionTransitions *prometheus.CounterVec
	SweepProcessed          *prometheus.CounterVec
	SweepDuration           *prometheus.HistogramVec
	HTTPLatency             *prometheus.HistogramVec
}

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pawhaven_payment_callbacks_total",
			Help: "Payment webhook callbacks by outcome",
		}, []string{"outcome"}),
		DonationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pawhaven_donations_total",
			Help: "Donations recorded by status and target kind",
		}, []string{"status", "target"}),
		DuplicateDeliveries: f.NewCounter(prometheus.CounterOpts{
			Name: "pawhaven_duplicate_deliveries_total",
			Help: "Replayed provider transactions that did not create a donation",
		}),
		GuardianshipTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pawhaven_guardianship_transitions_total",
			Help: "Guardianship state transitions by target status",
		}, []string{"to"}),
		SubscriptionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pawhaven_subscription_transitions_total",
			Help: "Payment subscription state transitions",
		}, []string{"to"}),
		SweepProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pawhaven_sweep_items_total",
			Help: "Items handled by periodic sweeps by result",
		}, []string{"sweep", "result"}),
		SweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pawhaven_sweep_duration_seconds",
			Help:    "Duration of periodic sweeps",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pawhaven_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncrementCallback(outcome string) {
	if m == nil {
		return
	}
	m.CallbacksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDonation(status, target string) {
	if m == nil {
		return
	}
	m.DonationsTotal.WithLabelValues(status, target).Inc()
}

func (m *Metrics) IncrementDuplicateDelivery() {
	if m == nil {
		return
	}
	m.DuplicateDeliveries.Inc()
}

func (m *Metrics) IncrementGuardianshipTransition(to string) {
	if m == nil {
		return
	}
	m.GuardianshipTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncrementSubscriptionTransition(to string) {
	if m == nil {
		return
	}
	m.SubscriptionTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveSweep(sweep string, processed, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.SweepProcessed.WithLabelValues(sweep, "processed").Add(float64(processed))
	m.SweepProcessed.WithLabelValues(sweep, "failed").Add(float64(failed))
	m.SweepDuration.WithLabelValues(sweep).Observe(seconds)
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, route, status).Observe(seconds)
}
