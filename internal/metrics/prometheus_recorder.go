package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once                sync.Once
	combinationDuration *prom.HistogramVec
	sessionDuration     prom.Histogram
	combinationResults  *prom.CounterVec
	sessionOutcome      *prom.CounterVec
	activeSession       prom.Gauge
	sessionCombinations prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.combinationDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "fwbuilder",
			Name:      "combination_duration_seconds",
			Help:      "Duration of individual combination builds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"})
		pr.sessionDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "fwbuilder",
			Name:      "session_duration_seconds",
			Help:      "Total build session duration",
			Buckets:   []float64{5, 30, 60, 300, 600, 1800, 3600, 7200},
		})
		pr.combinationResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fwbuilder",
			Name:      "combination_results_total",
			Help:      "Combination build counts by result",
		}, []string{"result"})
		pr.sessionOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fwbuilder",
			Name:      "session_outcomes_total",
			Help:      "Build session outcomes by final status",
		}, []string{"outcome"})
		pr.activeSession = prom.NewGauge(prom.GaugeOpts{
			Namespace: "fwbuilder",
			Name:      "session_active",
			Help:      "Whether a build session is currently running (0 or 1)",
		})
		pr.sessionCombinations = prom.NewGauge(prom.GaugeOpts{
			Namespace: "fwbuilder",
			Name:      "session_combinations",
			Help:      "Number of combinations planned for the current session",
		})
		reg.MustRegister(pr.combinationDuration, pr.sessionDuration, pr.combinationResults,
			pr.sessionOutcome, pr.activeSession, pr.sessionCombinations)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCombinationDuration(d time.Duration, result ResultLabel) {
	if p == nil || p.combinationDuration == nil {
		return
	}
	p.combinationDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveSessionDuration(d time.Duration) {
	if p == nil || p.sessionDuration == nil {
		return
	}
	p.sessionDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCombinationResult(result ResultLabel) {
	if p == nil || p.combinationResults == nil {
		return
	}
	p.combinationResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncSessionOutcome(outcome string) {
	if p == nil || p.sessionOutcome == nil {
		return
	}
	p.sessionOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetActiveSession(active bool) {
	if p == nil || p.activeSession == nil {
		return
	}
	if active {
		p.activeSession.Set(1)
	} else {
		p.activeSession.Set(0)
	}
}

func (p *PrometheusRecorder) SetSessionCombinations(n int) {
	if p == nil || p.sessionCombinations == nil {
		return
	}
	p.sessionCombinations.Set(float64(n))
}
