package keycloak

// Fetch results reported to Metrics.ObserveKeyFetch
const (
	FetchResultSuccess = "success"
	FetchResultError   = "error"
)

// Metrics receives authentication outcomes. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ObserveKeyFetch(result string)
	ObserveVerificationFailure(kind Kind)
	ObserveDecision(decision Decision)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveKeyFetch(string)          {}
func (NopMetrics) ObserveVerificationFailure(Kind) {}
func (NopMetrics) ObserveDecision(Decision)        {}
