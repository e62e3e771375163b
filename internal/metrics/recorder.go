package metrics

import "time"

// ResultLabel enumerates combination result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultTimedOut ResultLabel = "timed-out"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for session and combination metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveCombinationDuration(d time.Duration, result ResultLabel)
	ObserveSessionDuration(d time.Duration)
	IncCombinationResult(result ResultLabel)
	IncSessionOutcome(outcome string) // outcome: success|failed|canceled
	SetActiveSession(active bool)
	SetSessionCombinations(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCombinationDuration(time.Duration, ResultLabel) {}
func (NoopRecorder) ObserveSessionDuration(time.Duration)                  {}
func (NoopRecorder) IncCombinationResult(ResultLabel)                      {}
func (NoopRecorder) IncSessionOutcome(string)                              {}
func (NoopRecorder) SetActiveSession(bool)                                 {}
func (NoopRecorder) SetSessionCombinations(int)                            {}
