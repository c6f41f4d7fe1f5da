// Package metrics holds the Prometheus collectors recorded by the token and
// quota admission paths. They are registered on the default registry and
// served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenValidations counts Validate outcomes: admitted, revoked, expired,
	// malformed, unavailable.
	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_validations_total",
		Help: "Number of bearer token validations by outcome.",
	}, []string{"outcome"})

	// TokenRevocations counts revocations by trigger: explicit, bulk, expired.
	TokenRevocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_revocations_total",
		Help: "Number of tokens revoked by trigger.",
	}, []string{"trigger"})

	// QuotaDecisions counts quota gate decisions per tier.
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quota_decisions_total",
		Help: "Number of quota admission decisions by tier and outcome.",
	}, []string{"tier", "outcome"})

	// StoreLatency observes store round-trips made while admitting requests.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admission_store_latency_seconds",
		Help:    "Latency of token and quota store calls on the admission path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store", "op"})
)
