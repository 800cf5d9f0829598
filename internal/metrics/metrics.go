// Package metrics provides Prometheus metrics for the authentication service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contactsauth"

var (
	// LoginsTotal counts authenticate calls by outcome.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of credential authentications",
		},
		[]string{"outcome"},
	)

	// RefreshesTotal counts refresh token rotations by outcome.
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total number of refresh token rotations",
		},
		[]string{"outcome"},
	)

	// TokenValidationsTotal counts decoded tokens by expected scope and outcome.
	TokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Total number of token validations",
		},
		[]string{"scope", "outcome"},
	)

	// CacheLookupsTotal counts session cache lookups.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_lookups_total",
			Help:      "Total number of session cache lookups",
		},
		[]string{"result"},
	)
)

// RecordLogin records an authenticate outcome.
func RecordLogin(outcome string) {
	LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefresh records a refresh outcome.
func RecordRefresh(outcome string) {
	RefreshesTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenValidation records the outcome of validating a token for scope.
func RecordTokenValidation(scope, outcome string) {
	TokenValidationsTotal.WithLabelValues(scope, outcome).Inc()
}

// RecordCacheHit records a session cache hit.
func RecordCacheHit() {
	CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a session cache miss.
func RecordCacheMiss() {
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordCacheError records a session cache backend failure.
func RecordCacheError() {
	CacheLookupsTotal.WithLabelValues("error").Inc()
}
