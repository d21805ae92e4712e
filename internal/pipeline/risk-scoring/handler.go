// internal/pipeline/risk-scoring/handler.go
package riskscoring

import (
	"context"
	"time"

	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/metrics"
	"clinical-decision-pipeline/internal/models"
)

const Operation = "risk-scoring"

type Handler struct {
	config     *Config
	classifier Classifier
	ontology   RedFlagChecker
	logger     logger.Logger
}

// NewHandler wires the scoring engine. classifier may be nil, in which case
// every assessment uses the rule model.
func NewHandler(config *Config, classifier Classifier, ontology RedFlagChecker, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	return &Handler{
		config:     config,
		classifier: classifier,
		ontology:   ontology,
		logger:     logger.ForComponent(log, Operation),
	}
}

// Execute never fails: classifier problems degrade to the rule model.
func (h *Handler) Execute(ctx context.Context, input *Input) *models.RiskAssessment {
	startTime := time.Now()
	if input == nil {
		input = &Input{}
	}

	features := ExtractFeatures(input.Symptoms, input.VitalSigns, input.PatientAge, h.ontology)

	outcome := h.predict(ctx, features)
	path := PathClassifier
	raw := outcome.WithFallback(func() float64 {
		if h.classifier != nil {
			path = PathFeatureRules
			return FeatureRuleScore(features)
		}
		path = PathRules
		return RuleScore(input.Symptoms, input.VitalSigns, h.ontology)
	})
	if cause := outcome.Cause(); cause != nil && h.classifier != nil {
		h.logger.Warn("classifier degraded to feature rules", map[string]interface{}{
			"error": cause,
		})
	}

	score := RoundScore(raw)
	tier := ClassifyTier(score)
	redFlags := IdentifyRedFlags(input.Symptoms, input.VitalSigns, h.ontology)
	escalate := score > h.config.Threshold || len(redFlags) > 0

	assessment := &models.RiskAssessment{
		RiskScore:           score,
		RiskLevel:           tier,
		EscalationRequired:  escalate,
		RedFlags:            redFlags,
		ContributingFactors: ContributingFactors(input.Symptoms, input.VitalSigns),
		Recommendations:     Recommendations(tier, redFlags),
		ScoringPath:         path,
	}

	metrics.RiskScoringPath.WithLabelValues(path).Inc()
	metrics.RiskTierAssigned.WithLabelValues(string(tier)).Inc()
	if escalate {
		metrics.EscalationsRequired.Inc()
	}
	metrics.PipelineOperationsCompleted.WithLabelValues(Operation).Inc()
	metrics.PipelineOperationDuration.WithLabelValues(Operation).Observe(time.Since(startTime).Seconds())

	h.logger.Info("risk assessed", map[string]interface{}{
		"riskScore":    score,
		"riskLevel":    tier,
		"escalation":   escalate,
		"redFlagCount": len(redFlags),
		"scoringPath":  path,
		"symptomCount": len(input.Symptoms),
	})
	return assessment
}

func (h *Handler) predict(ctx context.Context, f Features) Outcome[float64] {
	if h.classifier == nil {
		return Degraded[float64](ErrModelUnavailable)
	}
	p, err := h.classifier.Predict(ctx, f)
	if err != nil {
		return Degraded[float64](err)
	}
	return Primary(p)
}
