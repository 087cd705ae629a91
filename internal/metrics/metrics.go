package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the token server
type Metrics struct {
	TokensIssued  *prometheus.CounterVec
	TokenFailures *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_server_tokens_issued_total",
			Help: "Total number of successful token responses, by grant type",
		}, []string{"grant_type"}),
		TokenFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_server_token_failures_total",
			Help: "Total number of token error responses, by error code",
		}, []string{"error"}),
	}
}

// IncrementTokensIssued increments the issued counter for a grant type.
func (m *Metrics) IncrementTokensIssued(grantType string) {
	m.TokensIssued.WithLabelValues(grantType).Inc()
}

// IncrementTokenFailures increments the failure counter for an error code.
func (m *Metrics) IncrementTokenFailures(errorCode string) {
	m.TokenFailures.WithLabelValues(errorCode).Inc()
}
