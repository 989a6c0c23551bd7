// Package metrics defines the head's instrumentation surface. Components
// depend on HeadMetrics only; the Prometheus implementation is picked at
// startup and Nop is used in tests.
package metrics

import "time"

// Outcomes of a list query.
const (
	OutcomeOK          = "ok"
	OutcomePartial     = "partial"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time.
type Timer interface {
	ObserveDuration()
}

// HeadMetrics defines the metrics recorded by the head.
// All methods are thread-safe.
type HeadMetrics interface {
	// List dispatch
	ListDuration(kind string) Timer
	ListCompleted(kind, outcome string)

	// Fan-out: one per node that failed or timed out
	NodeQueryFailed(kind string)

	// Log retrieval
	LogStreamOpened(mediaType string)
	LogStreamClosed(mediaType string)
	LogBytesStreamed(n int)

	// Registry and membership
	RegistrySize(endpointKind string, n int)
	MembershipRefreshed(d time.Duration, err error)
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

type nopHeadMetrics struct{}

func (nopHeadMetrics) ListDuration(string) Timer                { return nopTimer{} }
func (nopHeadMetrics) ListCompleted(string, string)             {}
func (nopHeadMetrics) NodeQueryFailed(string)                   {}
func (nopHeadMetrics) LogStreamOpened(string)                   {}
func (nopHeadMetrics) LogStreamClosed(string)                   {}
func (nopHeadMetrics) LogBytesStreamed(int)                     {}
func (nopHeadMetrics) RegistrySize(string, int)                 {}
func (nopHeadMetrics) MembershipRefreshed(time.Duration, error) {}

// Nop returns a no-op HeadMetrics implementation.
func Nop() HeadMetrics { return nopHeadMetrics{} }
