package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/realm-guard/keycloak"
)

const namespace = "realmguard"

// PrometheusMetrics implements keycloak.Metrics.
type PrometheusMetrics struct {
	decisions      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	keyFetches     *prometheus.CounterVec
	refreshAdvised prometheus.Counter
}

var _ keycloak.Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Authorization decisions by outcome and deny reason.",
		}, []string{"outcome", "reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_failures_total",
			Help:      "Token verification failures by kind.",
		}, []string{"kind"}),
		keyFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwks_fetches_total",
			Help:      "Certs endpoint fetches by result.",
		}, []string{"result"}),
		refreshAdvised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_advised_total",
			Help:      "Allowed requests whose token was close to expiry.",
		}),
	}

	for _, c := range []prometheus.Collector{m.decisions, m.failures, m.keyFetches, m.refreshAdvised} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) ObserveKeyFetch(result string) {
	m.keyFetches.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) ObserveVerificationFailure(kind keycloak.Kind) {
	m.failures.WithLabelValues(string(kind)).Inc()
}

func (m *PrometheusMetrics) ObserveDecision(d keycloak.Decision) {
	reason := string(d.Reason)
	if d.Allowed {
		reason = "none"
	}
	m.decisions.WithLabelValues(d.Outcome(), reason).Inc()
	if d.RefreshAdvised {
		m.refreshAdvised.Inc()
	}
}
