package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestForComponent_AddsComponentField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := ForComponent(NewZapAdapter(zap.New(core)), "risk-scoring")

	log.Info("scored", map[string]interface{}{"riskScore": 0.85})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "risk-scoring", ctx["component"])
	assert.Equal(t, 0.85, ctx["riskScore"])
}

func TestWithError_AndErrorFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithError(errors.New("boom"))

	log.Warn("degraded", map[string]interface{}{"cause": errors.New("timeout")})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "timeout", ctx["cause"])
}

func TestForComponent_NilLogger(t *testing.T) {
	log := ForComponent(nil, "knowledge-store")
	assert.NotNil(t, log)
	log.Debug("no-op", nil)
}
