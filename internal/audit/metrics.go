package audit

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's Prometheus instruments. Unlike the teacher's
// `gateway_handlers.go`, which registers package-global vars against the
// default registry in an `init()`, Metrics is built by a constructor and
// registered against a caller-supplied Registerer, so tests can use an
// isolated registry and the production binary can use the default one.
type Metrics struct {
	StageRequestsTotal  *prometheus.CounterVec
	StageDurationMS     *prometheus.HistogramVec
	PipelineOutcomes    *prometheus.CounterVec
	AuditChainAppends   prometheus.Counter
	AuditChainVerifyFail prometheus.Counter
}

// NewMetrics builds and registers the pipeline's metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governedchat_stage_requests_total",
				Help: "Total number of pipeline stage evaluations, by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		StageDurationMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "governedchat_stage_duration_milliseconds",
				Help:    "Pipeline stage duration in milliseconds, by stage.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
			[]string{"stage"},
		),
		PipelineOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governedchat_pipeline_requests_total",
				Help: "Total number of /api/chat requests, by action and failure_type.",
			},
			[]string{"action", "failure_type"},
		),
		AuditChainAppends: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "governedchat_audit_chain_appends_total",
				Help: "Total number of audit chain entries appended.",
			},
		),
		AuditChainVerifyFail: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "governedchat_audit_chain_verify_failures_total",
				Help: "Total number of audit chain verification failures detected.",
			},
		),
	}

	reg.MustRegister(
		m.StageRequestsTotal,
		m.StageDurationMS,
		m.PipelineOutcomes,
		m.AuditChainAppends,
		m.AuditChainVerifyFail,
	)

	return m
}

// RecordStage records one stage evaluation's outcome and duration.
func (m *Metrics) RecordStage(stage, outcome string, durationMS float64) {
	m.StageRequestsTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDurationMS.WithLabelValues(stage).Observe(durationMS)
}

// RecordOutcome records the top-level pipeline outcome for one request.
func (m *Metrics) RecordOutcome(action, failureType string) {
	m.PipelineOutcomes.WithLabelValues(action, failureType).Inc()
}
