package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	sessionStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Number of sessions that became active.",
		}, []string{"kind"},
	)
	sessionFinishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Number of sessions that ran to their full duration.",
		}, []string{"kind"},
	)
	sessionCancels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "cancelled_total",
			Help:      "Number of sessions that were interrupted.",
		}, []string{"kind"},
	)
	sessionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "conflicts_total",
			Help:      "Number of start attempts rejected because a session was already running.",
		},
	)
	sessionRunSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "run_seconds",
			Help:      "Wall-clock time a session ran before reaching a terminal state.",
			Buckets:   []float64{60, 300, 600, 900, 1500, 1800, 3600},
		}, []string{"kind", "outcome"},
	)
	sessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gomato",
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while this process owns the active session.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{sessionStarts, sessionFinishes, sessionCancels, sessionConflicts, sessionRunSeconds, sessionActive}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// already registered collectors are kept
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// WriteTextfile writes everything gathered by g to path in the text format read
// by node_exporter's textfile collector. A nil g uses the default gatherer.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStarted(kind string) {
	if regOK.Load() {
		sessionStarts.WithLabelValues(kind).Inc()
		sessionActive.Set(1)
	}
}

func IncConflict() {
	if regOK.Load() {
		sessionConflicts.Inc()
	}
}

// SetInactive clears the active gauge for a session whose outcome could not be recorded.
func SetInactive() {
	if regOK.Load() {
		sessionActive.Set(0)
	}
}

// ObserveTerminal records a session reaching outcome ("cancelled" or "finished").
func ObserveTerminal(kind, outcome string, seconds float64) {
	if !regOK.Load() {
		return
	}
	switch outcome {
	case "cancelled":
		sessionCancels.WithLabelValues(kind).Inc()
	case "finished":
		sessionFinishes.WithLabelValues(kind).Inc()
	}
	sessionRunSeconds.WithLabelValues(kind, outcome).Observe(seconds)
	sessionActive.Set(0)
}
