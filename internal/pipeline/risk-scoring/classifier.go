// internal/pipeline/risk-scoring/classifier.go
package riskscoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrModelUnavailable = errors.New("MODEL_UNAVAILABLE")
	ErrPredictionFailed = errors.New("PREDICTION_FAILED")
)

// Classifier returns the probability of the high-risk class.
type Classifier interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// logisticModelFile is the on-disk classifier format.
type logisticModelFile struct {
	Name      string             `yaml:"name"`
	Version   string             `yaml:"version"`
	Intercept float64            `yaml:"intercept"`
	Weights   map[string]float64 `yaml:"weights"`
	Means     map[string]float64 `yaml:"means"`
	Scales    map[string]float64 `yaml:"scales"`
}

// LogisticClassifier scores sigmoid(intercept + sum(w_i * (x_i - mean_i) / scale_i)).
type LogisticClassifier struct {
	Name      string
	Version   string
	intercept float64
	weights   Features
	means     Features
	scales    Features
}

// LoadClassifier reads a logistic model from YAML. Any problem reading or
// validating the file is reported as ErrModelUnavailable.
func LoadClassifier(path string) (*LogisticClassifier, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return ParseClassifier(raw)
}

// ParseClassifier builds a classifier from YAML bytes.
func ParseClassifier(raw []byte) (*LogisticClassifier, error) {
	var file logisticModelFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode model: %v", ErrModelUnavailable, err)
	}
	if len(file.Weights) == 0 {
		return nil, fmt.Errorf("%w: model has no weights", ErrModelUnavailable)
	}

	index := make(map[string]int, FeatureCount)
	for i, name := range FeatureNames {
		index[name] = i
	}

	c := &LogisticClassifier{Name: file.Name, Version: file.Version, intercept: file.Intercept}
	for i := range c.scales {
		c.scales[i] = 1
	}

	assign := func(section string, src map[string]float64, dst *Features) error {
		for name, v := range src {
			i, ok := index[name]
			if !ok {
				return fmt.Errorf("%w: unknown feature %q in %s", ErrModelUnavailable, name, section)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite %s for %q", ErrModelUnavailable, section, name)
			}
			dst[i] = v
		}
		return nil
	}
	if err := assign("weights", file.Weights, &c.weights); err != nil {
		return nil, err
	}
	if err := assign("means", file.Means, &c.means); err != nil {
		return nil, err
	}
	if err := assign("scales", file.Scales, &c.scales); err != nil {
		return nil, err
	}
	for i, s := range c.scales {
		if s == 0 {
			return nil, fmt.Errorf("%w: zero scale for %q", ErrModelUnavailable, FeatureNames[i])
		}
	}
	return c, nil
}

func (c *LogisticClassifier) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	z := c.intercept
	for i := range f {
		z += c.weights[i] * (f[i] - c.means[i]) / c.scales[i]
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability out of range", ErrPredictionFailed)
	}
	return p, nil
}
