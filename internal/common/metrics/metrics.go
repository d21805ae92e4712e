// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineOperationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_operations_completed_total",
			Help: "Total number of pipeline operations completed",
		},
		[]string{"operation"},
	)

	PipelineOperationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_operations_failed_total",
			Help: "Total number of pipeline operations that failed",
		},
		[]string{"operation", "error_code"},
	)

	PipelineOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_operation_duration_seconds",
			Help: "Duration of pipeline operations in seconds",
		},
		[]string{"operation"},
	)

	RiskScoringPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_scoring_path_total",
			Help: "Risk assessments by scoring path (classifier or rules)",
		},
		[]string{"path"},
	)

	RiskTierAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_tier_assigned_total",
			Help: "Risk assessments by assigned tier",
		},
		[]string{"tier"},
	)

	EscalationsRequired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_escalations_required_total",
			Help: "Risk assessments that required escalation",
		},
	)

	RetrievalOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowledge_retrieval_outcomes_total",
			Help: "Retrieval calls by outcome (vector, keyword, fallback)",
		},
		[]string{"outcome"},
	)

	EmbeddingBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knowledge_embedding_batch_duration_seconds",
			Help:    "Latency of one embedding batch during ingest",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "knowledge_indexed_chunks",
			Help: "Number of chunks in the currently published index",
		},
	)

	ReasoningOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_reasoning_outcomes_total",
			Help: "Assessment generation by outcome (ok, generation_failed, parse_failed)",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_active_sessions",
			Help: "Number of triage sessions held by the in-memory store",
		},
	)

	EscalationAlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalation_alerts_sent_total",
			Help: "Escalation alerts by channel and status",
		},
		[]string{"channel", "status"},
	)
)
