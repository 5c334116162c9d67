package tracingtest_test

import (
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfexamples/routeservice/tracing/tracingtest"
)

func TestMockTracerSpanTracer(t *testing.T) {
	tracer := tracingtest.NewTracer()

	span := tracer.StartSpan("test")
	span.Finish()

	assert.Same(t, tracer, span.Tracer())
}

func TestMockTracerFindSpan(t *testing.T) {
	tracer := tracingtest.NewTracer()

	parent := tracer.StartSpan("ingress")
	child := tracer.StartSpan("egress", opentracing.ChildOf(parent.Context()))
	child.SetTag("http.status_code", 200)
	child.Finish()
	parent.Finish()

	s := tracer.FindSpan("egress")
	require.NotNil(t, s)
	assert.Equal(t, 200, s.Tag("http.status_code"))
	assert.Nil(t, tracer.FindSpan("missing"))

	tracer.Reset()
	assert.Empty(t, tracer.FinishedSpans())
}

func TestMockTracerInjectExtract(t *testing.T) {
	tracer := tracingtest.NewTracer()
	span := tracer.StartSpan("ingress")
	defer span.Finish()

	carrier := opentracing.TextMapCarrier{}
	require.NoError(t, tracer.Inject(span.Context(), opentracing.TextMap, carrier))

	ctx, err := tracer.Extract(opentracing.TextMap, carrier)
	require.NoError(t, err)
	assert.NotNil(t, ctx)
}

func TestMockSpanLoggedValue(t *testing.T) {
	tracer := tracingtest.NewTracer()
	span := tracer.StartSpan("ingress")
	span.LogKV("route_service", "forward", "forwarded_url", "http://backend.internal:8080/path")
	span.Finish()

	s := tracer.FindSpan("ingress")
	v, ok := s.LoggedValue("forwarded_url")
	assert.True(t, ok)
	assert.Equal(t, "http://backend.internal:8080/path", v)

	_, ok = s.LoggedValue("event")
	assert.False(t, ok)
}

func TestMockTracerWaitsForOpenSpans(t *testing.T) {
	tracer := tracingtest.NewTracer()
	span := tracer.StartSpan("ingress")

	go func() {
		time.Sleep(20 * time.Millisecond)
		span.Finish()
	}()

	assert.Len(t, tracer.FinishedSpans(), 1)
}

func TestMockTracerFinishTwice(t *testing.T) {
	tracer := tracingtest.NewTracer()
	span := tracer.StartSpan("ingress")
	span.Finish()
	span.Finish()

	other := tracer.StartSpan("egress")
	other.Finish()

	assert.NotNil(t, tracer.FindSpan("egress"))
}
