package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records the health of the event pipeline on both ends:
// outbox publishing on the CMS side and envelope application on the
// discovery side.
type PipelineMetrics struct {
	published     *prometheus.CounterVec
	publishFails  *prometheus.CounterVec
	applied       *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	outboxRows    *prometheus.GaugeVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_events_published",
		Help: "Envelopes acknowledged by the broker.",
	}, []string{"entity_type", "event_type"})
	publishFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_publish_failures",
		Help: "Envelopes that failed to reach the broker and stayed in the outbox.",
	}, []string{"entity_type"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_events_applied",
		Help: "Envelopes applied to the discovery store.",
	}, []string{"entity_type", "event_type"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_events_discarded",
		Help: "Envelopes discarded by the version gate.",
	}, []string{"entity_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_dead_letters",
		Help: "Records parked in a dead letter table.",
	}, []string{"side", "reason"})
	applyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_apply_duration_seconds",
		Help:    "Time to apply one envelope to the discovery store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity_type"})
	outboxRows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_outbox_rows",
		Help: "Outbox rows by status, refreshed on each sweep.",
	}, []string{"status"})
	reg.MustRegister(published, publishFails, applied, discarded, deadLettered, applyDuration, outboxRows)
	return &PipelineMetrics{
		published:     published,
		publishFails:  publishFails,
		applied:       applied,
		discarded:     discarded,
		deadLettered:  deadLettered,
		applyDuration: applyDuration,
		outboxRows:    outboxRows,
	}
}

// IncPublished increments the published counter for one acknowledged envelope.
func (p *PipelineMetrics) IncPublished(entityType, eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(entityType), normalizeLabel(eventType)).Inc()
}

// IncPublishFailure increments the failure counter for one broker rejection.
func (p *PipelineMetrics) IncPublishFailure(entityType string) {
	if p == nil || p.publishFails == nil {
		return
	}
	p.publishFails.WithLabelValues(normalizeLabel(entityType)).Inc()
}

// IncApplied increments the applied counter for one consumed envelope.
func (p *PipelineMetrics) IncApplied(entityType, eventType string) {
	if p == nil || p.applied == nil {
		return
	}
	p.applied.WithLabelValues(normalizeLabel(entityType), normalizeLabel(eventType)).Inc()
}

// IncDiscarded increments the counter of envelopes dropped by the version gate.
func (p *PipelineMetrics) IncDiscarded(entityType string) {
	if p == nil || p.discarded == nil {
		return
	}
	p.discarded.WithLabelValues(normalizeLabel(entityType)).Inc()
}

// IncDeadLettered increments the dead letter counter for the given side
// ("outbox" or "sync") and reason.
func (p *PipelineMetrics) IncDeadLettered(side, reason string) {
	if p == nil || p.deadLettered == nil {
		return
	}
	p.deadLettered.WithLabelValues(normalizeLabel(side), normalizeLabel(reason)).Inc()
}

// ObserveApplyDuration records how long one envelope took to apply.
func (p *PipelineMetrics) ObserveApplyDuration(entityType string, duration time.Duration) {
	if p == nil || p.applyDuration == nil {
		return
	}
	p.applyDuration.WithLabelValues(normalizeLabel(entityType)).Observe(duration.Seconds())
}

// SetOutboxRows sets the gauge of outbox rows for one status.
func (p *PipelineMetrics) SetOutboxRows(status string, count int64) {
	if p == nil || p.outboxRows == nil {
		return
	}
	p.outboxRows.WithLabelValues(normalizeLabel(status)).Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
