package observability

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/realm-guard/keycloak"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	m.ObserveDecision(keycloak.Decision{Allowed: true, Status: http.StatusOK, RefreshAdvised: true})
	m.ObserveDecision(keycloak.Decision{Allowed: true, Status: http.StatusOK})
	m.ObserveDecision(keycloak.Decision{Status: http.StatusUnauthorized, Reason: keycloak.ReasonMissingHeader})
	m.ObserveVerificationFailure(keycloak.KindExpired)
	m.ObserveKeyFetch(keycloak.FetchResultSuccess)
	m.ObserveKeyFetch(keycloak.FetchResultError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("allowed", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("denied", "missing-header")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyFetches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyFetches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshAdvised))
}

func TestNewPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err)
}
