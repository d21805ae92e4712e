// internal/pipeline/risk-scoring/outcome.go
package riskscoring

// Outcome is the result of a step that may degrade: either a primary value
// or the cause that forced a fallback.
type Outcome[T any] struct {
	value T
	cause error
	ok    bool
}

// Primary wraps a value produced by the preferred path.
func Primary[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

// Degraded records why the preferred path could not produce a value.
func Degraded[T any](cause error) Outcome[T] {
	return Outcome[T]{cause: cause}
}

func (o Outcome[T]) IsPrimary() bool { return o.ok }

// Cause is nil for primary outcomes.
func (o Outcome[T]) Cause() error { return o.cause }

// WithFallback returns the primary value, or the result of fallback.
func (o Outcome[T]) WithFallback(fallback func() T) T {
	if o.ok {
		return o.value
	}
	return fallback()
}
