package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentSchema(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
		field string
	}{
		{
			name: "complete assessment",
			raw: `{"chief_complaint":"chest pain","history_of_present_illness":"2 days",
				"differential_diagnoses":[{"condition":"angina","likelihood":"high","reasoning":"r","red_flags_present":true}],
				"recommended_actions":["ECG"],"urgency_level":"emergency"}`,
			valid: true,
		},
		{
			name:  "null medical history is allowed",
			raw:   `{"chief_complaint":"cough","history_of_present_illness":"","relevant_medical_history":null,"differential_diagnoses":[],"recommended_actions":[],"urgency_level":"routine"}`,
			valid: true,
		},
		{
			name:  "unknown urgency",
			raw:   `{"chief_complaint":"cough","history_of_present_illness":"","differential_diagnoses":[],"recommended_actions":[],"urgency_level":"whenever"}`,
			valid: false,
			field: "urgency_level",
		},
		{
			name:  "missing chief complaint",
			raw:   `{"history_of_present_illness":"","differential_diagnoses":[],"recommended_actions":[],"urgency_level":"routine"}`,
			valid: false,
		},
		{
			name:  "diagnoses wrong type",
			raw:   `{"chief_complaint":"x","history_of_present_illness":"","differential_diagnoses":"none","recommended_actions":[],"urgency_level":"routine"}`,
			valid: false,
			field: "differential_diagnoses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := AssessmentSchema.ValidateBytes([]byte(tt.raw))
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			if tt.field != "" {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestAssessmentSchema_MalformedJSON(t *testing.T) {
	res := AssessmentSchema.ValidateBytes([]byte(`{"chief_complaint": `))
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "DOCUMENT_INVALID", res.Errors[0].Code)
}

func TestVitalSignsSchema(t *testing.T) {
	ok := VitalSignsSchema.Validate(map[string]interface{}{
		"heartRate":        80,
		"temperature":      38.2,
		"oxygenSaturation": 97,
	})
	assert.True(t, ok.Valid, ok.GetErrorMessages())

	bad := VitalSignsSchema.Validate(map[string]interface{}{
		"heartRate":        300,
		"oxygenSaturation": 40,
	})
	assert.False(t, bad.Valid)
	assert.True(t, bad.HasErrors("heartRate"))
	assert.True(t, bad.HasErrors("oxygenSaturation"))
	assert.Len(t, bad.GetErrorsForField("heartRate"), 1)
}

func TestSymptomListSchema(t *testing.T) {
	ok := SymptomListSchema.ValidateBytes([]byte(`[{"clinicalTerm":"fever","severity":"mild"}]`))
	assert.True(t, ok.Valid, ok.GetErrorMessages())

	textOnly := SymptomListSchema.ValidateBytes([]byte(`[{"originalText":"my chest hurts"}]`))
	assert.True(t, textOnly.Valid, textOnly.GetErrorMessages())

	blank := SymptomListSchema.ValidateBytes([]byte(`[{"clinicalTerm":"","originalText":""}]`))
	assert.False(t, blank.Valid)

	bad := SymptomListSchema.ValidateBytes([]byte(`[{"severity":"extreme"}]`))
	assert.False(t, bad.Valid)
	assert.GreaterOrEqual(t, len(bad.Errors), 2)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}
