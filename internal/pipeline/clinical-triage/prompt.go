// internal/pipeline/clinical-triage/prompt.go
package clinicaltriage

import (
	"encoding/json"
	"fmt"
	"strings"

	knowledgestore "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

const SystemPrompt = `You are an experienced clinical triage specialist conducting a structured patient interview. Your role is to:

1. Gather comprehensive clinical history following the OPQRST method:
   - Onset: When did symptoms begin?
   - Provocation/Palliation: What makes it better or worse?
   - Quality: How would you describe the symptom?
   - Region/Radiation: Where is it located? Does it spread?
   - Severity: How severe on a scale of 1-10?
   - Time: Is it constant or intermittent?

2. Assess relevant medical history:
   - Past medical conditions
   - Current medications
   - Allergies
   - Family history (if relevant)
   - Recent travel or exposures

3. Generate differential diagnoses based on symptoms
4. Recommend appropriate level of care

RULES:
- Be professional and empathetic
- Prioritize life-threatening conditions
- Follow evidence-based clinical guidelines
- Do not diagnose, but suggest possible conditions to investigate
- Always err on the side of caution for serious symptoms

Respond with a single JSON object and nothing else.`

const assessmentPromptTemplate = `Based on the following patient information, generate a clinical assessment:

Patient Information:
%s

Symptoms:
%s

Additional History:
%s

Relevant STW Guidelines:
%s

Generate a JSON response with:
{
    "chief_complaint": "primary presenting complaint",
    "history_of_present_illness": "detailed narrative of the illness",
    "relevant_medical_history": "pertinent medical history",
    "differential_diagnoses": [
        {
            "condition": "condition name",
            "likelihood": "high/medium/low",
            "reasoning": "clinical reasoning",
            "red_flags_present": true/false
        }
    ],
    "recommended_actions": ["list of recommended next steps"],
    "urgency_level": "emergency/urgent/routine/self-care"
}`

const noGuidelinesText = "No specific guidelines found."

// BuildPrompt renders the assessment request for a session and its grounding passages.
// Synthetic fallback passages are left out.
func BuildPrompt(s *Session, passages []knowledgestore.SearchResult) string {
	patient := "Not provided"
	if len(s.PatientInfo) > 0 {
		if raw, err := json.Marshal(s.PatientInfo); err == nil {
			patient = string(raw)
		}
	}

	symptomLines := make([]string, 0, len(s.Symptoms))
	for _, sym := range s.Symptoms {
		duration := sym.Duration
		if strings.TrimSpace(duration) == "" {
			duration = "unspecified"
		}
		symptomLines = append(symptomLines,
			fmt.Sprintf("- %s (Severity: %s, Duration: %s)", sym.ClinicalTerm, sym.Severity, duration))
	}

	historyLines := make([]string, 0, len(s.Responses))
	for _, r := range s.Responses {
		q := r.Question
		if q == "" {
			q = string(r.Category)
		}
		historyLines = append(historyLines, fmt.Sprintf("Q: %s\nA: %s", q, r.Answer))
	}

	guidelines := noGuidelinesText
	if texts := passageTexts(passages); len(texts) > 0 {
		guidelines = strings.Join(texts, "\n")
	}

	return fmt.Sprintf(assessmentPromptTemplate,
		patient,
		strings.Join(symptomLines, "\n"),
		strings.Join(historyLines, "\n"),
		guidelines,
	)
}

func passageTexts(passages []knowledgestore.SearchResult) []string {
	var out []string
	for _, p := range passages {
		if p.IsFallback() {
			continue
		}
		out = append(out, p.Text)
	}
	return out
}

// groundingSources lists distinct sources of the real passages used.
func groundingSources(passages []knowledgestore.SearchResult) []string {
	var real []knowledgestore.SearchResult
	for _, p := range passages {
		if !p.IsFallback() && p.Source != "" {
			real = append(real, p)
		}
	}
	return knowledgestore.UniqueSources(real)
}
