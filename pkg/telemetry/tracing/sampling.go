package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// createSampler maps a configured sampler name onto an SDK sampler. The
// result always defers to a sampled remote parent, so a request arriving
// with a sampled traceparent is traced through parse and storage.
func createSampler(name string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler
	switch name {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("sample ratio %g outside [0, 1]", ratio)
		}
		root = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler %q", name)
	}
	return sdktrace.ParentBased(root), nil
}
