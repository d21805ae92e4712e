// internal/pipeline/risk-scoring/features.go
package riskscoring

import (
	"strconv"
	"strings"
	"unicode"

	"clinical-decision-pipeline/internal/models"
)

// FeatureCount is the width of the classifier input.
const FeatureCount = 12

// FeatureNames lists the feature vector slots in order.
var FeatureNames = [FeatureCount]string{
	"age",
	"symptom_count",
	"max_severity",
	"has_red_flag",
	"duration_days",
	"heart_rate",
	"systolic_bp",
	"diastolic_bp",
	"temperature",
	"respiratory_rate",
	"oxygen_saturation",
	"affected_systems_count",
}

const (
	defaultAge          = 35
	defaultDurationDays = 3
)

// Features is the fixed-order classifier input.
type Features [FeatureCount]float64

// RedFlagChecker is the slice of the ontology scoring needs.
type RedFlagChecker interface {
	IsRedFlag(term string) bool
}

// ExtractFeatures builds the feature vector. Absent vitals take physiological defaults.
func ExtractFeatures(symptoms []models.StructuredSymptom, vitals *models.VitalSigns, age *int, ont RedFlagChecker) Features {
	var f Features

	f[0] = defaultAge
	if age != nil && *age > 0 {
		f[0] = float64(*age)
	}

	f[1] = float64(len(symptoms))

	maxSeverity := models.SeverityModerate.Rank()
	hasRedFlag := false
	for i, s := range symptoms {
		r := s.Severity.Rank()
		if i == 0 || r > maxSeverity {
			maxSeverity = r
		}
		if ont.IsRedFlag(s.Key()) {
			hasRedFlag = true
		}
	}
	f[2] = float64(maxSeverity)
	if hasRedFlag {
		f[3] = 1
	}

	f[4] = EstimateDurationDays(symptoms)

	f[5] = float64(vitals.HeartRateOrDefault())
	f[6] = float64(vitals.SystolicOrDefault())
	f[7] = float64(vitals.DiastolicOrDefault())
	f[8] = vitals.TemperatureOrDefault()
	f[9] = float64(vitals.RespiratoryRateOrDefault())
	f[10] = float64(vitals.OxygenSaturationOrDefault())

	f[11] = float64(countBodySystems(symptoms))
	return f
}

// EstimateDurationDays reads the first symptom whose duration names a unit.
// Text without hour, day, week or month is skipped. Every digit in the text is concatenated, so "2-3 days" reads as 23.
func EstimateDurationDays(symptoms []models.StructuredSymptom) float64 {
	for _, s := range symptoms {
		if s.Duration == "" {
			continue
		}
		d := strings.ToLower(s.Duration)
		switch {
		case strings.Contains(d, "hour"):
			return 0.04
		case strings.Contains(d, "day"):
			n, ok := digitsIn(d)
			if !ok {
				return 1
			}
			if n > 365 {
				return 365
			}
			return float64(n)
		case strings.Contains(d, "week"):
			n, ok := digitsIn(d)
			if !ok {
				return 7
			}
			return float64(n) * 7
		case strings.Contains(d, "month"):
			n, ok := digitsIn(d)
			if !ok {
				return 30
			}
			return float64(n) * 30
		}
	}
	return defaultDurationDays
}

// digitsIn returns the integer formed by every digit in s. With no digits it
// returns 1; an overflowing run reports ok=false.
func digitsIn(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < 128 {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 1, true
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func countBodySystems(symptoms []models.StructuredSymptom) int {
	seen := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		seen[s.BodySystem] = struct{}{}
	}
	return len(seen)
}
