package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records drain-cycle and per-action sync outcomes.
type SyncMetrics struct {
	cycleDuration *prometheus.HistogramVec
	actionSuccess *prometheus.CounterVec
	actionFailure *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	cycle := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_cycle_duration_seconds",
		Help:    "Duration of outbox drain cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_action_success",
		Help: "Pending actions replayed successfully.",
	}, []string{"entity_type", "action"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_action_failure",
		Help: "Pending actions that failed a replay attempt.",
	}, []string{"entity_type", "action"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_action_dead_lettered",
		Help: "Pending actions moved to the dead-letter table.",
	}, []string{"entity_type", "action"})
	reg.MustRegister(cycle, success, failure, dead)
	return &SyncMetrics{
		cycleDuration: cycle,
		actionSuccess: success,
		actionFailure: failure,
		deadLettered:  dead,
	}
}

// ObserveCycle records the duration of one drain cycle.
func (m *SyncMetrics) ObserveCycle(outcome string, duration time.Duration) {
	if m == nil || m.cycleDuration == nil {
		return
	}
	m.cycleDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for an action.
func (m *SyncMetrics) IncSuccess(entityType, action string) {
	if m == nil || m.actionSuccess == nil {
		return
	}
	m.actionSuccess.WithLabelValues(normalizeLabel(entityType), normalizeLabel(action)).Inc()
}

// IncFailure increments the failure counter for an action.
func (m *SyncMetrics) IncFailure(entityType, action string) {
	if m == nil || m.actionFailure == nil {
		return
	}
	m.actionFailure.WithLabelValues(normalizeLabel(entityType), normalizeLabel(action)).Inc()
}

// IncDeadLettered increments the dead-letter counter for an action.
func (m *SyncMetrics) IncDeadLettered(entityType, action string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(entityType), normalizeLabel(action)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
