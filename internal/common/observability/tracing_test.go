package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracing_DisabledIsNoop(t *testing.T) {
	tr, err := NewTracing("cdp", "test", false, "")
	require.NoError(t, err)

	ctx, span := tr.StartSpan(context.Background(), "noop")
	defer span.End()

	assert.False(t, span.IsRecording())
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestTracing_RecordsSpansAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracingWithProvider(provider, "cdp")

	ctx, span := tr.StartSpan(context.Background(), "knowledge.retrieve", attribute.Int("topK", 5))
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(ctx, errors.New("embedding failed"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "knowledge.retrieve", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int("topK", 5))
}

func TestNilTracing_StartSpan(t *testing.T) {
	var tr *Tracing
	ctx, span := tr.StartSpan(context.Background(), "x")
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
}

func TestNilTracing_LeavesParentSpanOpen(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	parentCtx, parent := NewTracingWithProvider(provider, "cdp").StartSpan(context.Background(), "triage.generate_assessment")

	var untraced *Tracing
	ctx, child := untraced.StartSpan(parentCtx, "knowledge.retrieve")
	child.End()

	assert.Equal(t, parentCtx, ctx)
	assert.Empty(t, recorder.Ended())
	assert.True(t, parent.IsRecording())

	parent.End()
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "triage.generate_assessment", recorder.Ended()[0].Name())
}

func TestObservability_NoopIsSafe(t *testing.T) {
	o := NewNoop()
	o.Track(context.Background(), "risk.assess", time.Now(), "ok")
	o.Shutdown()

	var nilObs *Observability
	nilObs.RecordOperation(context.Background(), "risk.assess", "ok")
}
