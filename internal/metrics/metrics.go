package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry         *prometheus.Registry
	runs             *prometheus.CounterVec // total reconciliation runs
	runDuration      prometheus.Histogram   // time to reconcile
	familyChecks     *prometheus.CounterVec // per address family outcomes
	dnsLookups       *prometheus.CounterVec // registered address lookups
	ipLookups        *prometheus.CounterVec // observed address lookups
	providerRequests *prometheus.CounterVec // route53 requests
}

// Public interface for metrics operations
func (m *Metrics) IncRun(success bool) {
	status := boolToResult(success)
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) SetRunDuration(duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncFamilyCheck(family, outcome string) {
	if !isValidOutcome(outcome) || family == "" {
		return
	}
	m.familyChecks.WithLabelValues(family, outcome).Inc()
}

func (m *Metrics) IncDNSLookup(family string, success bool) {
	status := boolToResult(success)
	m.dnsLookups.WithLabelValues(family, status).Inc()
}

func (m *Metrics) IncIPLookup(family string, success bool) {
	status := boolToResult(success)
	m.ipLookups.WithLabelValues(family, status).Inc()
}

func (m *Metrics) IncProviderRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.providerRequests.WithLabelValues(operation, status).Inc()
}

// WriteTextfile dumps the registry in text exposition format for the
// node-exporter textfile collector. A run under cron has no process left
// alive to scrape, so the file stands in for a /metrics endpoint.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOutcome(outcome string) bool {
	switch outcome {
	case "no_change", "updated", "skipped", "failed":
		return true
	}
	return false
}

func isValidOperation(op string) bool {
	switch op {
	case "zone_name", "upsert":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "aws_ddns"

	m := &Metrics{
		registry: registry,

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs",
		}, []string{"status"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		familyChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "family_checks_total",
			Help:      "Total per address family check outcomes",
		}, []string{"family", "outcome"}),

		dnsLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_lookups_total",
			Help:      "Total registered address DNS lookups",
		}, []string{"family", "status"}),

		ipLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ip_lookups_total",
			Help:      "Total observed address web lookups",
		}, []string{"family", "status"}),

		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total Route 53 API requests",
		}, []string{"operation", "status"}),
	}

	if register {
		registry.MustRegister(
			m.runs,
			m.runDuration,
			m.familyChecks,
			m.dnsLookups,
			m.ipLookups,
			m.providerRequests,
		)
	}
	return m
}
