package clinicaltriage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAssessmentJSON = `{
  "chief_complaint": "Chest pain",
  "history_of_present_illness": "Crushing chest pain for two hours.",
  "relevant_medical_history": null,
  "differential_diagnoses": [
    {"condition": "Acute coronary syndrome", "likelihood": "high", "reasoning": "Typical pain", "red_flags_present": true}
  ],
  "recommended_actions": ["Call emergency services"],
  "urgency_level": "emergency"
}`

func TestParseAssessment_Valid(t *testing.T) {
	a, err := ParseAssessment(validAssessmentJSON)
	require.NoError(t, err)

	assert.Equal(t, "Chest pain", a.ChiefComplaint)
	assert.Equal(t, "emergency", a.UrgencyLevel)
	assert.Empty(t, a.RelevantMedicalHistory)
	require.Len(t, a.DifferentialDiagnoses, 1)
	assert.True(t, a.DifferentialDiagnoses[0].RedFlagsPresent)
	assert.Equal(t, []string{"Call emergency services"}, a.RecommendedActions)
	assert.False(t, a.Degraded)
}

func TestParseAssessment_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"prose", "Here is the assessment you asked for."},
		{"prose around json", "Sure! " + validAssessmentJSON},
		{"missing fields", `{"chief_complaint": "Cough"}`},
		{"bad urgency", `{"chief_complaint":"Cough","history_of_present_illness":"","differential_diagnoses":[],"recommended_actions":[],"urgency_level":"whenever"}`},
		{"array", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAssessment(tt.raw)
			assert.Nil(t, a)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParseFailed))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.NotEmpty(t, pe.Problems)
		})
	}
}

func TestFallbackAssessment(t *testing.T) {
	a := FallbackAssessment("migraine")
	assert.Equal(t, "migraine", a.ChiefComplaint)
	assert.Equal(t, FallbackHistory, a.HistoryOfPresentIllness)
	assert.Empty(t, a.DifferentialDiagnoses)
	assert.NotNil(t, a.DifferentialDiagnoses)
	assert.Equal(t, []string{FallbackAction}, a.RecommendedActions)
	assert.Equal(t, "routine", a.UrgencyLevel)
	assert.True(t, a.Degraded)

	assert.Equal(t, FallbackChiefComplaint, FallbackAssessment("").ChiefComplaint)
}
