// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/observability"
	"clinical-decision-pipeline/internal/models"
	clinicaltriage "clinical-decision-pipeline/internal/pipeline/clinical-triage"
	escalationalert "clinical-decision-pipeline/internal/pipeline/escalation-alert"
	knowledgestore "clinical-decision-pipeline/internal/pipeline/knowledge-store"
	ontologylookup "clinical-decision-pipeline/internal/pipeline/ontology-lookup"
	riskscoring "clinical-decision-pipeline/internal/pipeline/risk-scoring"
)

type RiskAssessor interface {
	Execute(ctx context.Context, input *riskscoring.Input) *models.RiskAssessment
}

type Knowledge interface {
	Retrieve(ctx context.Context, query string, topK int, source string) []knowledgestore.SearchResult
	TreatmentWorkflow(ctx context.Context, condition string) knowledgestore.WorkflowResult
	Ingest(ctx context.Context, chunks []knowledgestore.DocumentChunk) (*knowledgestore.IngestResult, error)
	Stats() knowledgestore.Stats
}

type Triage interface {
	StartSession(ctx context.Context, symptoms []models.StructuredSymptom, patientInfo map[string]interface{}) (*clinicaltriage.Session, error)
	GetSession(ctx context.Context, id string) (*clinicaltriage.Session, error)
	NextQuestion(ctx context.Context, id string) (*clinicaltriage.Question, error)
	ProcessResponse(ctx context.Context, id string, category clinicaltriage.Category, answer string) (*clinicaltriage.ResponseResult, error)
	GenerateAssessment(ctx context.Context, id string) (*models.ClinicalAssessment, error)
	QuickAssess(ctx context.Context, symptoms []models.StructuredSymptom, patientInfo map[string]interface{}) (*clinicaltriage.Session, error)
	ResetSession(ctx context.Context, id string) (*clinicaltriage.Session, error)
	EndSession(ctx context.Context, id string) error
}

type Escalator interface {
	Execute(ctx context.Context, input *escalationalert.Input) (*escalationalert.Output, error)
}

// Ontology enriches incoming symptoms and answers term lookups.
type Ontology interface {
	Enrich(s models.StructuredSymptom) models.StructuredSymptom
	Resolve(text string) (string, bool)
	Info(term string) ontologylookup.SymptomInfo
	AllTerms() []string
}

// ReadinessCheck is a named dependency check for /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	DefaultTopK    int
	Version        string
}

func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: 90 * time.Second,
		MaxBodyBytes:   10 << 20,
		DefaultTopK:    knowledgestore.DefaultTopK,
	}
}

// Dependencies are the pipeline components served over HTTP. Escalation,
// Ontology, Chunker and Observability are optional.
type Dependencies struct {
	Risk          RiskAssessor
	Knowledge     Knowledge
	Triage        Triage
	Escalation    Escalator
	Ontology      Ontology
	Chunker       *knowledgestore.Chunker
	Observability *observability.Observability
	Readiness     []ReadinessCheck
}

type Server struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewServer(config *Config, deps Dependencies, log logger.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = knowledgestore.DefaultTopK
	}
	if deps.Ontology == nil {
		deps.Ontology = ontologylookup.Default()
	}
	if deps.Chunker == nil {
		deps.Chunker = knowledgestore.NewChunker(0, 0)
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	return &Server{
		config: config,
		deps:   deps,
		logger: logger.ForComponent(log, "api"),
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
		}
		r.Use(middleware.RequestSize(s.config.MaxBodyBytes))
		r.Use(s.track)

		r.Post("/risk-assess", s.assessRisk)
		r.Post("/analyze", s.analyze)

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/search", s.searchKnowledge)
			r.Get("/stats", s.knowledgeStats)
			r.Get("/workflow", s.treatmentWorkflow)
			r.Post("/ingest", s.ingestDocuments)
		})

		r.Route("/ontology/terms", func(r chi.Router) {
			r.Get("/", s.listTerms)
			r.Get("/{term}", s.lookupTerm)
		})

		r.Route("/triage/sessions", func(r chi.Router) {
			r.Post("/", s.startSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.endSession)
				r.Get("/question", s.nextQuestion)
				r.Post("/responses", s.processResponse)
				r.Post("/assessment", s.generateAssessment)
				r.Post("/reset", s.resetSession)
			})
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.config.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Readiness))
	for _, c := range s.deps.Readiness {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	body := map[string]interface{}{
		"status": "ready",
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	}
	if s.deps.Knowledge != nil {
		body["indexLoaded"] = s.deps.Knowledge.Stats().IndexLoaded
	}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	writeJSON(w, status, body)
}
