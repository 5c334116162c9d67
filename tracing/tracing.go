// Package tracing handles opentracing support for the route service.
//
// The tracer is selected by the first element of the -opentracing flag,
// the rest of the elements are passed to the implementation as options:
//
//	-opentracing noop
//	-opentracing "basic sample-modulo=10 max-logs-per-span=20"
package tracing

import (
	"context"
	"errors"
	"fmt"

	ot "github.com/opentracing/opentracing-go"

	"github.com/cfexamples/routeservice/tracing/tracers/basic"
)

var (
	// ErrUnsupportedTracer is returned when an unsupported opentracing
	// implementation was requested as tracer
	ErrUnsupportedTracer = errors.New("invalid argument, not a supported tracer")
	// ErrMissingArguments is returned when an empty list is passed to InitTracer()
	ErrMissingArguments = errors.New("no arguments passed")
)

// InitTracer returns the tracer implementation named by the first option.
func InitTracer(opts []string) (ot.Tracer, error) {
	if len(opts) == 0 {
		return nil, ErrMissingArguments
	}

	impl, opts := opts[0], opts[1:]
	switch impl {
	case "noop":
		return &ot.NoopTracer{}, nil
	case "basic":
		t, err := basic.InitTracer(opts)
		if err != nil {
			return nil, fmt.Errorf("tracer %s returned: %w", impl, err)
		}

		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTracer, impl)
	}
}

// CreateSpan creates a started span from an optional parent found in the
// context. Without a parent, it creates a root span.
func CreateSpan(name string, ctx context.Context, openTracer ot.Tracer) ot.Span {
	parentSpan := ot.SpanFromContext(ctx)
	if parentSpan == nil {
		return openTracer.StartSpan(name)
	}

	return openTracer.StartSpan(name, ot.ChildOf(parentSpan.Context()))
}

// LogKV logs a key value pair to the span found in the context, if any.
func LogKV(k, v string, ctx context.Context) {
	if span := ot.SpanFromContext(ctx); span != nil {
		span.LogKV(k, v)
	}
}
