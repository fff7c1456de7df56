// Package metrics exposes Prometheus instruments for the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ask outcomes.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeDuplicate = "duplicate"
)

var (
	asksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_asks_total",
		Help: "Answered questions by cache outcome",
	}, []string{"outcome"})

	admissionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_admission_rejections_total",
		Help: "Requests rejected by the admission controller by tier",
	}, []string{"tier"})

	quotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_quota_denials_total",
		Help: "Questions denied by the entitlement policy by plan",
	}, []string{"plan"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_provider_latency_seconds",
		Help:    "Reasoning provider call latency",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	}, []string{"model", "result"})
)

// ObserveAsk counts an answered question.
func ObserveAsk(outcome string) {
	asksTotal.WithLabelValues(outcome).Inc()
}

// ObserveAdmissionRejection counts a rate-limited request.
func ObserveAdmissionRejection(tier string) {
	admissionRejections.WithLabelValues(tier).Inc()
}

// ObserveQuotaDenial counts an entitlement denial.
func ObserveQuotaDenial(plan string) {
	quotaDenials.WithLabelValues(plan).Inc()
}

// ObserveProvider records one provider call.
func ObserveProvider(model string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerLatency.WithLabelValues(model, result).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
