package basic

import (
	"testing"

	basic "github.com/opentracing/basictracer-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer(t *testing.T) {
	for _, tt := range []struct {
		name string
		opts []string
		err  bool
	}{
		{"defaults", nil, false},
		{"all options", []string{"drop-all-logs", "sample-modulo=2", "max-logs-per-span=10", "flush-interval=10ms"}, false},
		{"missing sample modulo", []string{"sample-modulo"}, true},
		{"invalid sample modulo", []string{"sample-modulo=x"}, true},
		{"zero sample modulo", []string{"sample-modulo=0"}, true},
		{"missing max logs", []string{"max-logs-per-span="}, true},
		{"invalid flush interval", []string{"flush-interval=soon"}, true},
		{"unknown option", []string{"recorder=remote"}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := InitTracer(tt.opts)
			if tt.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			defer tr.Close()
		})
	}
}

func TestRecordsSpans(t *testing.T) {
	tr, err := InitTracer([]string{"flush-interval=1h"})
	require.NoError(t, err)
	defer tr.Close()

	span := tr.StartSpan("ingress")
	span.SetTag("route_service", "forward")
	span.Finish()

	spans := tr.(*basicTracer).recorder.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingress", spans[0].Operation)
	assert.Equal(t, "forward", spans[0].Tags["route_service"])
	assert.IsType(t, basic.SpanContext{}, spans[0].Context)
}

func TestCloseTwice(t *testing.T) {
	tr, err := InitTracer(nil)
	require.NoError(t, err)
	tr.Close()
	assert.NotPanics(t, tr.Close)
}
