package riskscoring

import (
	"testing"

	"clinical-decision-pipeline/internal/models"
	ontologylookup "clinical-decision-pipeline/internal/pipeline/ontology-lookup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symptom(term string, sev models.Severity, system string) models.StructuredSymptom {
	return models.StructuredSymptom{OriginalText: term, ClinicalTerm: term, Severity: sev, BodySystem: system}
}

// ==========================
// Feature extraction
// ==========================

func TestExtractFeatures_Defaults(t *testing.T) {
	f := ExtractFeatures(nil, nil, nil, ontologylookup.Default())

	assert.Equal(t, Features{35, 0, 1, 0, 3, 75, 120, 80, 37.0, 16, 98, 0}, f)
}

func TestExtractFeatures_Populated(t *testing.T) {
	symptoms := []models.StructuredSymptom{
		symptom("cough", models.SeverityMild, "respiratory"),
		symptom("chest pain", models.SeveritySevere, "cardiovascular"),
		symptom("fever", models.SeverityModerate, "systemic"),
	}
	symptoms[1].Duration = "2 weeks"
	age := 62
	vitals := &models.VitalSigns{HeartRate: models.IntPtr(110), Temperature: models.FloatPtr(38.9)}

	f := ExtractFeatures(symptoms, vitals, &age, ontologylookup.Default())

	assert.Equal(t, 62.0, f[0])
	assert.Equal(t, 3.0, f[1])
	assert.Equal(t, 2.0, f[2])
	assert.Equal(t, 1.0, f[3])
	assert.Equal(t, 14.0, f[4])
	assert.Equal(t, 110.0, f[5])
	assert.Equal(t, 120.0, f[6])
	assert.Equal(t, 38.9, f[8])
	assert.Equal(t, 3.0, f[11])
}

func TestExtractFeatures_MildOnlyHasRankZero(t *testing.T) {
	f := ExtractFeatures([]models.StructuredSymptom{symptom("rash", models.SeverityMild, "dermatological")}, nil, nil, ontologylookup.Default())
	assert.Equal(t, 0.0, f[2])
}

func TestEstimateDurationDays(t *testing.T) {
	tests := []struct {
		name      string
		durations []string
		want      float64
	}{
		{"no durations", []string{"", ""}, 3},
		{"hours", []string{"a few hours"}, 0.04},
		{"days with number", []string{"5 days"}, 5},
		{"days without number", []string{"a day"}, 1},
		{"days capped", []string{"900 days"}, 365},
		{"digits concatenate", []string{"2-3 days"}, 23},
		{"weeks", []string{"3 weeks"}, 21},
		{"week default", []string{"about a week"}, 7},
		{"months", []string{"2 Months"}, 60},
		{"first duration wins", []string{"", "4 days", "2 weeks"}, 4},
		{"unknown unit keeps scanning", []string{"since last night", "2 weeks"}, 14},
		{"only unknown units", []string{"since yesterday"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symptoms := make([]models.StructuredSymptom, 0, len(tt.durations))
			for _, d := range tt.durations {
				s := symptom("cough", models.SeverityMild, "respiratory")
				s.Duration = d
				symptoms = append(symptoms, s)
			}
			assert.InDelta(t, tt.want, EstimateDurationDays(symptoms), 1e-9)
		})
	}
}

// ==========================
// Rule model
// ==========================

func TestRuleScore(t *testing.T) {
	ont := ontologylookup.Default()
	tests := []struct {
		name     string
		symptoms []models.StructuredSymptom
		vitals   *models.VitalSigns
		want     float64
	}{
		{
			name:     "single mild symptom",
			symptoms: []models.StructuredSymptom{symptom("rash", models.SeverityMild, "dermatological")},
			want:     0.05,
		},
		{
			name:     "critical red flag with hypoxia",
			symptoms: []models.StructuredSymptom{symptom("chest pain", models.SeverityCritical, "cardiovascular")},
			vitals:   &models.VitalSigns{OxygenSaturation: models.IntPtr(85)},
			want:     0.85,
		},
		{
			name:     "moderate tachycardia band",
			symptoms: []models.StructuredSymptom{symptom("cough", models.SeverityModerate, "respiratory")},
			vitals:   &models.VitalSigns{HeartRate: models.IntPtr(105)},
			want:     0.15,
		},
		{
			name:     "severe vitals each count once",
			symptoms: []models.StructuredSymptom{symptom("fever", models.SeveritySevere, "systemic")},
			vitals: &models.VitalSigns{
				HeartRate:        models.IntPtr(45),
				SystolicBP:       models.IntPtr(85),
				Temperature:      models.FloatPtr(39.8),
				OxygenSaturation: models.IntPtr(93),
			},
			want: 0.2 + 0.15 + 0.15 + 0.15 + 0.15,
		},
		{
			name:     "mild fever band",
			symptoms: []models.StructuredSymptom{symptom("fever", models.SeverityMild, "systemic")},
			vitals:   &models.VitalSigns{Temperature: models.FloatPtr(38.7)},
			want:     0.13,
		},
		{
			name: "three body systems",
			symptoms: []models.StructuredSymptom{
				symptom("cough", models.SeverityMild, "respiratory"),
				symptom("rash", models.SeverityMild, "dermatological"),
				symptom("nausea", models.SeverityMild, "gastrointestinal"),
			},
			want: 0.25,
		},
		{
			name: "clamped at one",
			symptoms: []models.StructuredSymptom{
				symptom("chest pain", models.SeverityCritical, "cardiovascular"),
				symptom("seizure", models.SeverityCritical, "neurological"),
				symptom("confusion", models.SeverityCritical, "neurological"),
			},
			want: 1.0,
		},
		{
			name:     "unknown severity scores as mild",
			symptoms: []models.StructuredSymptom{symptom("rash", models.Severity("weird"), "dermatological")},
			want:     0.05,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RuleScore(tt.symptoms, tt.vitals, ont), 1e-9)
		})
	}
}

func TestFeatureRuleScore(t *testing.T) {
	base := ExtractFeatures([]models.StructuredSymptom{symptom("rash", models.SeverityMild, "dermatological")}, nil, nil, ontologylookup.Default())
	with := func(mut func(*Features)) Features {
		f := base
		mut(&f)
		return f
	}

	tests := []struct {
		name     string
		features Features
		want     float64
	}{
		{"one mild symptom with normal vitals", base, 0},
		{"elderly", with(func(f *Features) { f[0] = 80 }), 0.1},
		{"infant", with(func(f *Features) { f[0] = 3 }), 0.1},
		{"age seventy is not elderly", with(func(f *Features) { f[0] = 70 }), 0},
		{"more than five symptoms", with(func(f *Features) { f[1] = 6 }), 0.1},
		{"severity scales", with(func(f *Features) { f[2] = 2 }), 0.3},
		{"red flag", with(func(f *Features) { f[3] = 1 }), 0.25},
		{"bradycardia", with(func(f *Features) { f[5] = 55 }), 0.1},
		{"fever", with(func(f *Features) { f[8] = 38.6 }), 0.1},
		{"hypoxia", with(func(f *Features) { f[10] = 92 }), 0.15},
		{"clamped at one", with(func(f *Features) {
			f[0], f[1], f[2], f[3], f[5], f[8], f[10] = 90, 8, 3, 1, 130, 40, 85
		}), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FeatureRuleScore(tt.features), 1e-9)
		})
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.85, RoundScore(0.30+0.25+0.30))
	assert.Equal(t, 0.333, RoundScore(1.0/3))
	assert.Equal(t, 1.0, RoundScore(1.7))
	assert.Equal(t, 0.0, RoundScore(-0.2))
}

func TestClassifyTier_InclusiveBounds(t *testing.T) {
	assert.Equal(t, models.RiskTierCritical, ClassifyTier(0.8))
	assert.Equal(t, models.RiskTierHigh, ClassifyTier(0.79999))
	assert.Equal(t, models.RiskTierHigh, ClassifyTier(0.6))
	assert.Equal(t, models.RiskTierMedium, ClassifyTier(0.59999))
	assert.Equal(t, models.RiskTierMedium, ClassifyTier(0.3))
	assert.Equal(t, models.RiskTierLow, ClassifyTier(0.29999))
	assert.Equal(t, models.RiskTierLow, ClassifyTier(0))
}

// ==========================
// Red flags, factors, recommendations
// ==========================

func TestIdentifyRedFlags(t *testing.T) {
	symptoms := []models.StructuredSymptom{
		symptom("chest pain", models.SeverityCritical, "cardiovascular"),
		symptom("cough", models.SeverityMild, "respiratory"),
	}
	vitals := &models.VitalSigns{
		OxygenSaturation: models.IntPtr(88),
		HeartRate:        models.IntPtr(140),
		Temperature:      models.FloatPtr(40.5),
		SystolicBP:       models.IntPtr(190),
		DiastolicBP:      models.IntPtr(110),
	}

	flags := IdentifyRedFlags(symptoms, vitals, ontologylookup.Default())

	assert.Equal(t, []string{
		"Red flag symptom: chest pain",
		"Critical severity: chest pain",
		"Low oxygen saturation: 88%",
		"Rapid heart rate: 140 bpm",
		"High fever: 40.5°C",
		"Dangerously high blood pressure: 190/110",
	}, flags)
}

func TestIdentifyRedFlags_LowPressureWithoutDiastolic(t *testing.T) {
	flags := IdentifyRedFlags(nil, &models.VitalSigns{SystolicBP: models.IntPtr(80)}, ontologylookup.Default())
	assert.Equal(t, []string{"Low blood pressure: 80"}, flags)
}

func TestIdentifyRedFlags_NoneIsEmptyNotNil(t *testing.T) {
	flags := IdentifyRedFlags([]models.StructuredSymptom{symptom("cough", models.SeverityMild, "respiratory")}, nil, ontologylookup.Default())
	require.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestContributingFactors(t *testing.T) {
	factors := ContributingFactors(
		[]models.StructuredSymptom{
			symptom("fever", models.SeveritySevere, "systemic"),
			symptom("cough", models.SeverityMild, "respiratory"),
		},
		&models.VitalSigns{OxygenSaturation: models.IntPtr(94), Temperature: models.FloatPtr(38.2)},
	)

	assert.Equal(t, []models.ContributingFactor{
		{Factor: "Symptom: fever", Contribution: 0.3},
		{Factor: "Symptom: cough", Contribution: 0.1},
		{Factor: "Low oxygen saturation", Contribution: 0.2},
		{Factor: "Elevated temperature", Contribution: 0.1},
	}, factors)
}

func TestRecommendations(t *testing.T) {
	assert.Equal(t, "⚠️ SEEK IMMEDIATE MEDICAL ATTENTION", Recommendations(models.RiskTierCritical, nil)[0])
	assert.Equal(t, "⚠️ SEEK IMMEDIATE MEDICAL ATTENTION", Recommendations(models.RiskTierLow, []string{"x"})[0])
	assert.Equal(t, "Consult a doctor within the next few hours", Recommendations(models.RiskTierHigh, nil)[0])
	assert.Equal(t, "Schedule an appointment with your doctor", Recommendations(models.RiskTierMedium, nil)[0])
	assert.Equal(t, "Continue monitoring your symptoms", Recommendations(models.RiskTierLow, nil)[0])

	recs := Recommendations(models.RiskTierLow, nil)
	recs[0] = "mutated"
	assert.Equal(t, "Continue monitoring your symptoms", Recommendations(models.RiskTierLow, nil)[0])
}
