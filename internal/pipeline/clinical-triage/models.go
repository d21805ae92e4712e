// internal/pipeline/clinical-triage/models.go
package clinicaltriage

import (
	"time"

	"clinical-decision-pipeline/internal/models"
)

// State is the position of a session in the interview.
type State string

const (
	StateCollecting State = "collecting"
	StateReady      State = "ready_for_assessment"
	StateDone       State = "done"
)

// Question is one interview prompt for a missing-information category.
type Question struct {
	Question string   `json:"question"`
	Category Category `json:"category"`
	Required bool     `json:"required"`
}

// Response is one recorded answer, tagged with the category it answers.
type Response struct {
	Category  Category  `json:"category"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the state of one triage interview.
type Session struct {
	ID          string                     `json:"sessionId"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
	Symptoms    []models.StructuredSymptom `json:"symptoms"`
	Questions   []Question                 `json:"questionsAsked"`
	Responses   []Response                 `json:"responses"`
	PatientInfo map[string]interface{}     `json:"patientInfo"`
	State       State                      `json:"currentStep"`
	Assessment  *models.ClinicalAssessment `json:"assessment,omitempty"`
}

// Answered reports whether a response for category has been recorded.
func (s *Session) Answered(category Category) bool {
	for _, r := range s.Responses {
		if r.Category == category {
			return true
		}
	}
	return false
}

// PrimaryTerm is the clinical term of the first recorded symptom.
func (s *Session) PrimaryTerm() string {
	if len(s.Symptoms) == 0 {
		return ""
	}
	return s.Symptoms[0].ClinicalTerm
}

// Clone returns a copy that shares no slices or maps with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Symptoms = append([]models.StructuredSymptom(nil), s.Symptoms...)
	out.Questions = append([]Question(nil), s.Questions...)
	out.Responses = append([]Response(nil), s.Responses...)
	if s.PatientInfo != nil {
		out.PatientInfo = make(map[string]interface{}, len(s.PatientInfo))
		for k, v := range s.PatientInfo {
			out.PatientInfo[k] = v
		}
	}
	if s.Assessment != nil {
		a := *s.Assessment
		out.Assessment = &a
	}
	return &out
}

const (
	StatusContinue = "continue"
	StatusReady    = "ready"

	ReadyMessage = "Sufficient information gathered for clinical assessment"
)

// ResponseResult tells the caller what to do after an answer.
type ResponseResult struct {
	Status       string    `json:"status"`
	NextQuestion *Question `json:"nextQuestion,omitempty"`
	Progress     float64   `json:"progress"`
	Message      string    `json:"message,omitempty"`
}
