// internal/pipeline/ontology-lookup/ontology.go
package ontologylookup

import (
	"strings"

	"clinical-decision-pipeline/internal/models"
)

// UnknownBodySystem is returned for terms outside every body-system group.
const UnknownBodySystem = "general"

// SymptomInfo is the ontology's view of one term.
type SymptomInfo struct {
	Symptom     string `json:"symptom"`
	ICD10Code   string `json:"icd10Code,omitempty"`
	Description string `json:"description,omitempty"`
	BodySystem  string `json:"bodySystem"`
	IsRedFlag   bool   `json:"isRedFlag"`
}

// Ontology answers code, body-system and red-flag questions over static tables.
// It is read-only after construction and safe for concurrent use.
type Ontology struct {
	codes    map[string]codeEntry
	order    []string
	systems  map[string]string
	redFlags map[string]struct{}
}

var defaultOntology = build()

// Default returns the built-in ontology.
func Default() *Ontology {
	return defaultOntology
}

func build() *Ontology {
	o := &Ontology{
		codes:    make(map[string]codeEntry, len(icd10Codes)),
		order:    make([]string, 0, len(icd10Codes)),
		systems:  make(map[string]string),
		redFlags: make(map[string]struct{}, len(redFlagSymptoms)),
	}
	for _, e := range icd10Codes {
		o.codes[e.term] = e
		o.order = append(o.order, e.term)
	}
	for system, terms := range bodySystems {
		for _, t := range terms {
			o.systems[t] = system
		}
	}
	for _, t := range redFlagSymptoms {
		o.redFlags[t] = struct{}{}
	}
	return o
}

// Key converts free text into table key form: lower case, spaces and hyphens as underscores.
func Key(term string) string {
	k := strings.ToLower(strings.TrimSpace(term))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

// CodeFor returns the ICD-10 code for term.
func (o *Ontology) CodeFor(term string) (string, bool) {
	e, ok := o.codes[Key(term)]
	return e.code, ok
}

// BodySystemFor returns the body system of term, or "general".
func (o *Ontology) BodySystemFor(term string) string {
	if s, ok := o.systems[Key(term)]; ok {
		return s
	}
	return UnknownBodySystem
}

// IsRedFlag reports whether term always warrants escalation.
func (o *Ontology) IsRedFlag(term string) bool {
	_, ok := o.redFlags[Key(term)]
	return ok
}

// Normalize maps free text onto a known term: a direct term mention first,
// then the synonym lists. The empty string means nothing matched.
func (o *Ontology) Normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}
	for _, term := range o.order {
		if strings.Contains(lower, strings.ReplaceAll(term, "_", " ")) {
			return term
		}
	}
	for _, row := range symptomSynonyms {
		for _, syn := range row.synonyms {
			if strings.Contains(lower, syn) {
				return row.term
			}
		}
	}
	return ""
}

// ClassifySeverity reads severity indicator words from a description.
func (o *Ontology) ClassifySeverity(description string) models.Severity {
	lower := strings.ToLower(description)
	for _, row := range severityIndicators {
		for _, ind := range row.indicators {
			if strings.Contains(lower, ind) {
				return models.Severity(row.severity)
			}
		}
	}
	return models.SeverityModerate
}

// Info collects everything the ontology knows about term.
func (o *Ontology) Info(term string) SymptomInfo {
	key := Key(term)
	e := o.codes[key]
	return SymptomInfo{
		Symptom:     key,
		ICD10Code:   e.code,
		Description: e.description,
		BodySystem:  o.BodySystemFor(key),
		IsRedFlag:   o.IsRedFlag(key),
	}
}

// AllTerms lists every coded term in table order.
func (o *Ontology) AllTerms() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Enrich completes s from the tables. An empty clinical term is resolved
// from the original text, and a missing severity is read from the original
// text's indicator words. Values already set are kept.
func (o *Ontology) Enrich(s models.StructuredSymptom) models.StructuredSymptom {
	if strings.TrimSpace(s.ClinicalTerm) == "" {
		if term := o.Normalize(s.OriginalText); term != "" {
			s.ClinicalTerm = strings.ReplaceAll(term, "_", " ")
		} else {
			s.ClinicalTerm = strings.ToLower(strings.TrimSpace(s.OriginalText))
		}
	}
	if s.ICD10Code == "" {
		if code, ok := o.CodeFor(s.ClinicalTerm); ok {
			s.ICD10Code = code
		}
	}
	if s.BodySystem == "" {
		s.BodySystem = o.BodySystemFor(s.ClinicalTerm)
	}
	if !s.Severity.Valid() {
		s.Severity = o.ClassifySeverity(s.OriginalText)
	}
	return s
}

// Resolve maps a term or free-text phrase onto a coded term. The table key
// is tried first, then Normalize.
func (o *Ontology) Resolve(text string) (string, bool) {
	if _, ok := o.codes[Key(text)]; ok {
		return Key(text), true
	}
	if term := o.Normalize(text); term != "" {
		return term, true
	}
	return "", false
}
