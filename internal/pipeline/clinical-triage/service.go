// internal/pipeline/clinical-triage/service.go
package clinicaltriage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"clinical-decision-pipeline/internal/common/genai"
	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/metrics"
	"clinical-decision-pipeline/internal/common/observability"
	"clinical-decision-pipeline/internal/models"
	knowledgestore "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

const Operation = "clinical-triage"

var (
	ErrSessionAssessed = errors.New("SESSION_ALREADY_ASSESSED")
	ErrSessionNotDone  = errors.New("SESSION_NOT_ASSESSED")
	ErrInvalidResponse = errors.New("INVALID_RESPONSE")
)

const (
	reasoningOK               = "ok"
	reasoningGenerationFailed = "generation_failed"
	reasoningParseFailed      = "parse_failed"
)

// Retriever supplies grounding passages for a symptom set.
type Retriever interface {
	SearchGuidelines(ctx context.Context, symptoms []string, topK int) []knowledgestore.SearchResult
}

type Service struct {
	config    *Config
	store     SessionStore
	retriever Retriever
	reasoner  genai.Reasoner
	locks     *sessionLocks
	tracing   *observability.Tracing
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the triage state machine. retriever and reasoner may be
// nil; assessments then use no grounding or the fallback respectively.
func NewService(config *Config, store SessionStore, retriever Retriever, reasoner genai.Reasoner, log logger.Logger) *Service {
	if config == nil {
		config = LoadConfig()
	}
	if config.GroundingPassages <= 0 {
		config.GroundingPassages = 3
	}
	if store == nil {
		store = NewMemoryStore(config.SessionTTL)
	}
	return &Service{
		config:    config,
		store:     store,
		retriever: retriever,
		reasoner:  reasoner,
		locks:     newSessionLocks(),
		logger:    logger.ForComponent(log, Operation),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithTracing enables a span around assessment generation.
func (s *Service) WithTracing(t *observability.Tracing) *Service {
	s.tracing = t
	return s
}

// StartSession creates a session in the collecting state.
func (s *Service) StartSession(ctx context.Context, symptoms []models.StructuredSymptom, patientInfo map[string]interface{}) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Symptoms:    append([]models.StructuredSymptom(nil), symptoms...),
		Questions:   []Question{},
		Responses:   []Response{},
		PatientInfo: map[string]interface{}{},
		State:       StateCollecting,
	}
	for k, v := range patientInfo {
		sess.PatientInfo[k] = v
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("triage session started", map[string]interface{}{
		"sessionId":    sess.ID,
		"symptomCount": len(symptoms),
	})
	return sess.Clone(), nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// NextQuestion returns the highest-priority outstanding question, or nil once
// nothing is missing. In that case a collecting session becomes ready.
func (s *Service) NextQuestion(ctx context.Context, id string) (*Question, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDone {
		return nil, nil
	}

	q := s.advance(sess)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return q, nil
}

// advance runs missing-information detection and either records the next
// question or marks the session ready. A question still pending from the
// previous call is not recorded twice. Caller holds the session lock.
func (s *Service) advance(sess *Session) *Question {
	missing := MissingInfo(sess)
	if len(missing) == 0 {
		sess.State = StateReady
		return nil
	}
	q := GenerateQuestion(sess, missing[0])
	if n := len(sess.Questions); n == 0 || sess.Questions[n-1].Category != q.Category {
		sess.Questions = append(sess.Questions, q)
	}
	sess.State = StateCollecting
	return &q
}

// ProcessResponse records an answer and reports the next step.
func (s *Service) ProcessResponse(ctx context.Context, id string, category Category, answer string) (*ResponseResult, error) {
	category = Category(strings.TrimSpace(string(category)))
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidResponse)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDone {
		return nil, ErrSessionAssessed
	}

	sess.Responses = append(sess.Responses, Response{
		Category:  category,
		Question:  GenerateQuestion(sess, category).Question,
		Answer:    answer,
		Timestamp: s.now(),
	})

	next := s.advance(sess)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("triage response recorded", map[string]interface{}{
		"sessionId": id,
		"category":  category,
		"answers":   len(sess.Responses),
		"state":     sess.State,
	})

	if next == nil {
		return &ResponseResult{
			Status:   StatusReady,
			Progress: 1,
			Message:  ReadyMessage,
		}, nil
	}
	return &ResponseResult{
		Status:       StatusContinue,
		NextQuestion: next,
		Progress:     Progress(len(sess.Responses)),
	}, nil
}

// GenerateAssessment grounds and requests a clinical assessment. Only session
// lookup failures are returned; reasoning and parse failures produce the
// fallback assessment. The session lock is not held during external calls.
func (s *Service) GenerateAssessment(ctx context.Context, id string) (*models.ClinicalAssessment, error) {
	startTime := time.Now()

	unlock := s.locks.lock(id)
	sess, err := s.store.Get(ctx, id)
	unlock()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracing.StartSpan(ctx, "triage.generate_assessment",
		attribute.String("session.id", id),
		attribute.Int("symptom.count", len(sess.Symptoms)),
	)
	defer span.End()

	assessment := s.assess(ctx, sess)

	unlock = s.locks.lock(id)
	defer unlock()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	current.Assessment = assessment
	current.State = StateDone
	if err := s.save(ctx, current); err != nil {
		return nil, err
	}

	metrics.PipelineOperationsCompleted.WithLabelValues(Operation).Inc()
	metrics.PipelineOperationDuration.WithLabelValues(Operation).Observe(time.Since(startTime).Seconds())
	s.logger.Info("assessment generated", map[string]interface{}{
		"sessionId":     id,
		"degraded":      assessment.Degraded,
		"urgencyLevel":  assessment.UrgencyLevel,
		"diagnoses":     len(assessment.DifferentialDiagnoses),
		"stwReferences": len(assessment.STWReferences),
		"durationMs":    time.Since(startTime).Milliseconds(),
	})
	return assessment, nil
}

// assess runs retrieval and reasoning for a session snapshot. It never fails.
func (s *Service) assess(ctx context.Context, sess *Session) *models.ClinicalAssessment {
	var passages []knowledgestore.SearchResult
	if s.retriever != nil && len(sess.Symptoms) > 0 {
		passages = s.retriever.SearchGuidelines(ctx, models.ClinicalTerms(sess.Symptoms), s.config.GroundingPassages)
		if len(passages) > s.config.GroundingPassages {
			passages = passages[:s.config.GroundingPassages]
		}
	}

	if s.reasoner == nil {
		s.recordReasoning(reasoningGenerationFailed)
		return FallbackAssessment(sess.PrimaryTerm())
	}

	req := genai.GenerateRequest{
		Prompt:      BuildPrompt(sess, passages),
		System:      SystemPrompt,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
		JSON:        true,
	}

	callCtx := ctx
	if s.config.ReasoningTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.ReasoningTimeout)
		defer cancel()
	}

	raw, err := s.reasoner.Generate(callCtx, req)
	if err != nil {
		observability.RecordError(ctx, err)
		s.recordReasoning(reasoningGenerationFailed)
		s.logger.Warn("reasoning service failed, using fallback assessment", map[string]interface{}{
			"sessionId": sess.ID,
			"error":     err.Error(),
		})
		return FallbackAssessment(sess.PrimaryTerm())
	}

	assessment, err := ParseAssessment(raw)
	if err != nil {
		observability.RecordError(ctx, err)
		s.recordReasoning(reasoningParseFailed)
		s.logger.Warn("reasoning output rejected, using fallback assessment", map[string]interface{}{
			"sessionId": sess.ID,
			"error":     err.Error(),
		})
		return FallbackAssessment(sess.PrimaryTerm())
	}

	assessment.STWReferences = groundingSources(passages)
	s.recordReasoning(reasoningOK)
	return assessment
}

func (s *Service) recordReasoning(outcome string) {
	metrics.ReasoningOutcomes.WithLabelValues(outcome).Inc()
}

// QuickAssess starts a session and immediately generates its assessment.
func (s *Service) QuickAssess(ctx context.Context, symptoms []models.StructuredSymptom, patientInfo map[string]interface{}) (*Session, error) {
	sess, err := s.StartSession(ctx, symptoms, patientInfo)
	if err != nil {
		return nil, err
	}
	if _, err := s.GenerateAssessment(ctx, sess.ID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, sess.ID)
}

// ResetSession returns an assessed session to collecting, clearing its
// history and assessment. Symptoms and patient info are kept.
func (s *Service) ResetSession(ctx context.Context, id string) (*Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State != StateDone {
		return nil, ErrSessionNotDone
	}

	sess.Questions = []Question{}
	sess.Responses = []Response{}
	sess.Assessment = nil
	sess.State = StateCollecting
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("triage session reset", map[string]interface{}{"sessionId": id})
	return sess, nil
}

// EndSession destroys a session.
func (s *Service) EndSession(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("triage session ended", map[string]interface{}{"sessionId": id})
	return nil
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Error("failed to save session", map[string]interface{}{
			"sessionId": sess.ID,
			"error":     err.Error(),
		})
		return err
	}
	return nil
}
