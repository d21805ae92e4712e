// internal/common/validation/clinical.go
package validation

// AssessmentSchemaJSON describes the JSON object the reasoning service must return.
const AssessmentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["chief_complaint", "history_of_present_illness", "differential_diagnoses", "recommended_actions", "urgency_level"],
  "properties": {
    "chief_complaint": {"type": "string", "minLength": 1},
    "history_of_present_illness": {"type": "string"},
    "relevant_medical_history": {"type": ["string", "null"]},
    "differential_diagnoses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["condition"],
        "properties": {
          "condition": {"type": "string", "minLength": 1},
          "likelihood": {"type": "string"},
          "reasoning": {"type": "string"},
          "red_flags_present": {"type": "boolean"}
        }
      }
    },
    "recommended_actions": {"type": "array", "items": {"type": "string"}},
    "urgency_level": {"type": "string", "enum": ["emergency", "urgent", "routine", "self-care"]}
  }
}`

// VitalSignsSchemaJSON holds the accepted physiological ranges at the API boundary.
const VitalSignsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "heartRate": {"type": "integer", "minimum": 30, "maximum": 250},
    "bloodPressureSystolic": {"type": "integer", "minimum": 50, "maximum": 250},
    "bloodPressureDiastolic": {"type": "integer", "minimum": 30, "maximum": 150},
    "temperature": {"type": "number", "minimum": 35.0, "maximum": 42.0},
    "respiratoryRate": {"type": "integer", "minimum": 5, "maximum": 60},
    "oxygenSaturation": {"type": "integer", "minimum": 50, "maximum": 100}
  }
}`

// SymptomListSchemaJSON validates the symptom array accepted by scoring and analysis.
const SymptomListSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "anyOf": [
      {"required": ["clinicalTerm"], "properties": {"clinicalTerm": {"minLength": 1}}},
      {"required": ["originalText"], "properties": {"originalText": {"minLength": 1}}}
    ],
    "properties": {
      "originalText": {"type": "string"},
      "clinicalTerm": {"type": "string"},
      "bodySystem": {"type": "string"},
      "severity": {"type": "string", "enum": ["mild", "moderate", "severe", "critical", ""]},
      "duration": {"type": "string"},
      "location": {"type": "string"},
      "modifyingFactors": {"type": "array", "items": {"type": "string"}}
    }
  }
}`

var (
	AssessmentSchema  = MustCompile("clinical-assessment", AssessmentSchemaJSON)
	VitalSignsSchema  = MustCompile("vital-signs", VitalSignsSchemaJSON)
	SymptomListSchema = MustCompile("symptom-list", SymptomListSchemaJSON)
)
