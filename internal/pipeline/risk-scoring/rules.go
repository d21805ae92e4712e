// internal/pipeline/risk-scoring/rules.go
package riskscoring

import (
	"fmt"
	"math"
	"strconv"

	"clinical-decision-pipeline/internal/models"
)

var severityPoints = map[models.Severity]float64{
	models.SeverityCritical: 0.30,
	models.SeveritySevere:   0.20,
	models.SeverityModerate: 0.10,
	models.SeverityMild:     0.05,
}

// RuleScore is the deterministic additive model, clamped to 1.0.
func RuleScore(symptoms []models.StructuredSymptom, vitals *models.VitalSigns, ont RedFlagChecker) float64 {
	score := 0.0

	for _, s := range symptoms {
		pts, ok := severityPoints[s.Severity]
		if !ok {
			pts = severityPoints[models.SeverityMild]
		}
		score += pts
	}

	for _, s := range symptoms {
		if ont.IsRedFlag(s.Key()) {
			score += 0.25
		}
	}

	if vitals != nil {
		if hr := vitals.HeartRate; hr != nil {
			switch {
			case *hr > 120 || *hr < 50:
				score += 0.15
			case *hr > 100 || *hr < 60:
				score += 0.05
			}
		}
		if sys := vitals.SystolicBP; sys != nil && (*sys > 180 || *sys < 90) {
			score += 0.15
		}
		if t := vitals.Temperature; t != nil {
			switch {
			case *t > 39.5 || *t < 35.5:
				score += 0.15
			case *t > 38.5:
				score += 0.08
			}
		}
		if spo2 := vitals.OxygenSaturation; spo2 != nil {
			switch {
			case *spo2 < 90:
				score += 0.30
			case *spo2 < 95:
				score += 0.15
			}
		}
	}

	if countBodySystems(symptoms) >= 3 {
		score += 0.10
	}

	return math.Min(score, 1.0)
}

// FeatureRuleScore scores an already-extracted feature vector. It backs up a
// classifier whose prediction failed, so the same inputs it saw are scored.
func FeatureRuleScore(f Features) float64 {
	score := 0.0

	if age := f[0]; age < 5 || age > 70 {
		score += 0.1
	}
	if f[1] > 5 {
		score += 0.1
	}
	score += f[2] * 0.15
	if f[3] == 1 {
		score += 0.25
	}

	if hr := f[5]; hr > 100 || hr < 60 {
		score += 0.1
	}
	if f[8] > 38.5 {
		score += 0.1
	}
	if f[10] < 95 {
		score += 0.15
	}

	return math.Min(score, 1.0)
}

// RoundScore rounds to three decimals and clamps into [0,1].
func RoundScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return math.Round(score*1000) / 1000
}

// ClassifyTier maps a score onto a tier. Lower bounds are inclusive.
func ClassifyTier(score float64) models.RiskTier {
	switch {
	case score >= 0.8:
		return models.RiskTierCritical
	case score >= 0.6:
		return models.RiskTierHigh
	case score >= 0.3:
		return models.RiskTierMedium
	default:
		return models.RiskTierLow
	}
}

// IdentifyRedFlags lists every escalation trigger independently of the score.
func IdentifyRedFlags(symptoms []models.StructuredSymptom, vitals *models.VitalSigns, ont RedFlagChecker) []string {
	flags := []string{}

	for _, s := range symptoms {
		if ont.IsRedFlag(s.Key()) {
			flags = append(flags, "Red flag symptom: "+s.ClinicalTerm)
		}
		if s.Severity == models.SeverityCritical {
			flags = append(flags, "Critical severity: "+s.ClinicalTerm)
		}
	}

	if vitals == nil {
		return flags
	}
	if v := vitals.OxygenSaturation; v != nil && *v < 92 {
		flags = append(flags, fmt.Sprintf("Low oxygen saturation: %d%%", *v))
	}
	if v := vitals.HeartRate; v != nil && *v > 130 {
		flags = append(flags, fmt.Sprintf("Rapid heart rate: %d bpm", *v))
	}
	if v := vitals.Temperature; v != nil && *v > 40 {
		flags = append(flags, fmt.Sprintf("High fever: %s°C", strconv.FormatFloat(*v, 'f', -1, 64)))
	}
	if v := vitals.SystolicBP; v != nil {
		switch {
		case *v > 180:
			flags = append(flags, "Dangerously high blood pressure: "+bloodPressure(vitals))
		case *v < 90:
			flags = append(flags, "Low blood pressure: "+bloodPressure(vitals))
		}
	}
	return flags
}

func bloodPressure(v *models.VitalSigns) string {
	if v.DiastolicBP == nil {
		return strconv.Itoa(*v.SystolicBP)
	}
	return fmt.Sprintf("%d/%d", *v.SystolicBP, *v.DiastolicBP)
}

var factorWeights = map[models.Severity]float64{
	models.SeverityMild:     0.1,
	models.SeverityModerate: 0.2,
	models.SeveritySevere:   0.3,
	models.SeverityCritical: 0.4,
}

// ContributingFactors explains the assessment. Weights are not summed into the score.
func ContributingFactors(symptoms []models.StructuredSymptom, vitals *models.VitalSigns) []models.ContributingFactor {
	factors := make([]models.ContributingFactor, 0, len(symptoms)+2)
	for _, s := range symptoms {
		w, ok := factorWeights[s.Severity]
		if !ok {
			w = 0.1
		}
		factors = append(factors, models.ContributingFactor{Factor: "Symptom: " + s.ClinicalTerm, Contribution: w})
	}
	if vitals != nil {
		if v := vitals.OxygenSaturation; v != nil && *v < 95 {
			factors = append(factors, models.ContributingFactor{Factor: "Low oxygen saturation", Contribution: 0.2})
		}
		if v := vitals.Temperature; v != nil && *v > 38 {
			factors = append(factors, models.ContributingFactor{Factor: "Elevated temperature", Contribution: 0.1})
		}
	}
	return factors
}

var (
	immediateAttention = []string{
		"⚠️ SEEK IMMEDIATE MEDICAL ATTENTION",
		"Call emergency services (112) or go to nearest emergency room",
		"Do not drive yourself - have someone take you or call ambulance",
		"If possible, bring a list of current medications",
	}
	highRiskAdvice = []string{
		"Consult a doctor within the next few hours",
		"Consider visiting an urgent care center",
		"Monitor symptoms closely for any worsening",
		"Avoid strenuous activities",
	}
	mediumRiskAdvice = []string{
		"Schedule an appointment with your doctor",
		"Monitor symptoms and note any changes",
		"Rest and stay hydrated",
		"Return if symptoms worsen",
	}
	lowRiskAdvice = []string{
		"Continue monitoring your symptoms",
		"Try home remedies and rest",
		"Consult a doctor if symptoms persist beyond 3-5 days",
		"Stay hydrated and get adequate rest",
	}
)

// Recommendations picks the canned advice tier. Any red flag selects immediate attention.
func Recommendations(tier models.RiskTier, redFlags []string) []string {
	var src []string
	switch {
	case tier == models.RiskTierCritical || len(redFlags) > 0:
		src = immediateAttention
	case tier == models.RiskTierHigh:
		src = highRiskAdvice
	case tier == models.RiskTierMedium:
		src = mediumRiskAdvice
	default:
		src = lowRiskAdvice
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
