// internal/models/vitals.go
package models

// Physiological defaults substituted for absent vitals during scoring.
const (
	DefaultHeartRate        = 75
	DefaultSystolicBP       = 120
	DefaultDiastolicBP      = 80
	DefaultTemperature      = 37.0
	DefaultRespiratoryRate  = 16
	DefaultOxygenSaturation = 98
)

// VitalSigns holds optional measurements. A nil field means "not measured".
type VitalSigns struct {
	HeartRate        *int     `json:"heartRate,omitempty"`
	SystolicBP       *int     `json:"bloodPressureSystolic,omitempty"`
	DiastolicBP      *int     `json:"bloodPressureDiastolic,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *int     `json:"respiratoryRate,omitempty"`
	OxygenSaturation *int     `json:"oxygenSaturation,omitempty"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// HeartRateOrDefault returns the measured heart rate or the default.
func (v *VitalSigns) HeartRateOrDefault() int {
	if v == nil {
		return DefaultHeartRate
	}
	return intOr(v.HeartRate, DefaultHeartRate)
}

func (v *VitalSigns) SystolicOrDefault() int {
	if v == nil {
		return DefaultSystolicBP
	}
	return intOr(v.SystolicBP, DefaultSystolicBP)
}

func (v *VitalSigns) DiastolicOrDefault() int {
	if v == nil {
		return DefaultDiastolicBP
	}
	return intOr(v.DiastolicBP, DefaultDiastolicBP)
}

func (v *VitalSigns) TemperatureOrDefault() float64 {
	if v == nil || v.Temperature == nil {
		return DefaultTemperature
	}
	return *v.Temperature
}

func (v *VitalSigns) RespiratoryRateOrDefault() int {
	if v == nil {
		return DefaultRespiratoryRate
	}
	return intOr(v.RespiratoryRate, DefaultRespiratoryRate)
}

func (v *VitalSigns) OxygenSaturationOrDefault() int {
	if v == nil {
		return DefaultOxygenSaturation
	}
	return intOr(v.OxygenSaturation, DefaultOxygenSaturation)
}

// IntPtr and FloatPtr are small helpers for building VitalSigns literals.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
