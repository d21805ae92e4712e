// internal/pipeline/clinical-triage/missing_info.go
package clinicaltriage

import (
	"fmt"
	"strings"

	"clinical-decision-pipeline/internal/models"
)

// Category names a kind of clinical information the interview gathers.
type Category string

const (
	CategoryOnset              Category = "onset"
	CategoryQuality            Category = "quality"
	CategorySeverity           Category = "severity"
	CategoryLocation           Category = "location"
	CategoryTiming             Category = "timing"
	CategoryModifyingFactors   Category = "modifying_factors"
	CategoryAssociatedSymptoms Category = "associated_symptoms"
	CategoryMedicalHistory     Category = "medical_history"
	CategoryMedications        Category = "medications"
	CategoryAllergies          Category = "allergies"
)

// MaxMissingPerTurn caps how many outstanding categories one evaluation reports.
const MaxMissingPerTurn = 3

// ProgressDenominator approximates the number of answers a full interview takes.
const ProgressDenominator = 6

type missingRule struct {
	category Category
	missing  func(*Session) bool
}

// missingInfoTable is evaluated top to bottom; row order is priority order.
var missingInfoTable = []missingRule{
	{CategoryOnset, func(s *Session) bool {
		return anySymptom(s, func(sym models.StructuredSymptom) bool { return !sym.HasDuration() }) &&
			!s.Answered(CategoryOnset)
	}},
	{CategorySeverity, func(s *Session) bool {
		return anySymptom(s, func(sym models.StructuredSymptom) bool { return sym.Severity == models.SeverityModerate }) &&
			!s.Answered(CategorySeverity)
	}},
	{CategoryMedicalHistory, func(s *Session) bool {
		return !hasValue(s.PatientInfo, "medical_history") && !s.Answered(CategoryMedicalHistory)
	}},
	{CategoryMedications, func(s *Session) bool { return !s.Answered(CategoryMedications) }},
	{CategoryAllergies, func(s *Session) bool { return !s.Answered(CategoryAllergies) }},
}

// MissingInfo returns up to MaxMissingPerTurn outstanding categories in priority order.
func MissingInfo(s *Session) []Category {
	missing := make([]Category, 0, MaxMissingPerTurn)
	for _, rule := range missingInfoTable {
		if rule.missing(s) {
			missing = append(missing, rule.category)
			if len(missing) == MaxMissingPerTurn {
				break
			}
		}
	}
	return missing
}

func anySymptom(s *Session, pred func(models.StructuredSymptom) bool) bool {
	for _, sym := range s.Symptoms {
		if pred(sym) {
			return true
		}
	}
	return false
}

func hasValue(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}

var questionTemplates = map[Category]string{
	CategoryOnset:              "When did you first notice %s? Please describe how it started.",
	CategoryQuality:            "How would you describe the %s? (e.g., sharp, dull, throbbing, burning)",
	CategorySeverity:           "On a scale of 1 to 10, where 10 is the worst, how severe is your %s?",
	CategoryLocation:           "Can you point to exactly where you feel the %s? Does it spread anywhere?",
	CategoryTiming:             "Is the %s constant, or does it come and go?",
	CategoryModifyingFactors:   "Is there anything that makes your %s better or worse?",
	CategoryAssociatedSymptoms: "Are you experiencing any other symptoms along with this?",
	CategoryMedicalHistory:     "Do you have any medical conditions I should know about?",
	CategoryMedications:        "Are you currently taking any medications, supplements, or herbal remedies?",
	CategoryAllergies:          "Do you have any known allergies, especially to medications?",
}

var requiredCategories = map[Category]bool{
	CategoryOnset:     true,
	CategorySeverity:  true,
	CategoryAllergies: true,
}

// GenerateQuestion fills the category template with the session's first symptom term.
func GenerateQuestion(s *Session, category Category) Question {
	term := s.PrimaryTerm()
	if term == "" {
		term = "your symptoms"
	}

	var text string
	if tmpl, ok := questionTemplates[category]; ok {
		text = tmpl
		if strings.Contains(tmpl, "%s") {
			text = fmt.Sprintf(tmpl, term)
		}
	} else {
		text = fmt.Sprintf("Please tell me more about your %s.", category)
	}

	return Question{
		Question: text,
		Category: category,
		Required: requiredCategories[category],
	}
}

// Progress is the rough completion fraction after n answers, capped at 1.
func Progress(answers int) float64 {
	p := float64(answers) / ProgressDenominator
	if p > 1 {
		return 1
	}
	return p
}
