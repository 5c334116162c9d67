// Package tracingtest provides a mock opentracing tracer for tests.
package tracingtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

const finishTimeout = time.Second

// MockTracer wraps the opentracing mocktracer, so that started spans report
// it as their tracer, and FinishedSpans waits until every started span was
// finished.
type MockTracer struct {
	mock     *mocktracer.MockTracer
	mu       sync.Mutex
	open     int
	finished chan struct{}
}

// MockSpan is a recorded span, with helpers for the assertions.
type MockSpan struct {
	*mocktracer.MockSpan
	tracer *MockTracer
	once   sync.Once
}

var _ opentracing.Tracer = NewTracer()

func NewTracer() *MockTracer {
	return &MockTracer{
		mock:     mocktracer.New(),
		finished: make(chan struct{}, 1),
	}
}

// Reset forgets the recorded and the open spans.
func (t *MockTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = 0
	t.mock.Reset()
}

func (t *MockTracer) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	t.mu.Lock()
	t.open++
	t.mu.Unlock()

	s := t.mock.StartSpan(operationName, opts...).(*mocktracer.MockSpan)
	return &MockSpan{MockSpan: s, tracer: t}
}

func (t *MockTracer) spanFinished() {
	t.mu.Lock()
	t.open--
	t.mu.Unlock()

	select {
	case t.finished <- struct{}{}:
	default:
	}
}

func (t *MockTracer) openSpans() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// FinishedSpans returns the recorded spans, in the order of finishing. It
// panics when some started spans are not finished within a second.
func (t *MockTracer) FinishedSpans() []*MockSpan {
	timeout := time.After(finishTimeout)
	for t.openSpans() > 0 {
		select {
		case <-t.finished:
		case <-timeout:
			panic(fmt.Sprintf("timeout waiting for %d open spans", t.openSpans()))
		}
	}

	recorded := t.mock.FinishedSpans()
	spans := make([]*MockSpan, len(recorded))
	for i, s := range recorded {
		spans[i] = &MockSpan{MockSpan: s, tracer: t}
	}

	return spans
}

// FindSpan returns the first finished span with operationName, or nil.
func (t *MockTracer) FindSpan(operationName string) *MockSpan {
	for _, s := range t.FinishedSpans() {
		if s.OperationName == operationName {
			return s
		}
	}

	return nil
}

func (t *MockTracer) Inject(sm opentracing.SpanContext, format any, carrier any) error {
	return t.mock.Inject(sm, format, carrier)
}

func (t *MockTracer) Extract(format any, carrier any) (opentracing.SpanContext, error) {
	return t.mock.Extract(format, carrier)
}

func (s *MockSpan) Tracer() opentracing.Tracer {
	return s.tracer
}

func (s *MockSpan) Finish() {
	s.MockSpan.Finish()
	s.once.Do(s.tracer.spanFinished)
}

func (s *MockSpan) FinishWithOptions(opts opentracing.FinishOptions) {
	s.MockSpan.FinishWithOptions(opts)
	s.once.Do(s.tracer.spanFinished)
}

// LoggedValue returns the first logged value of key, in the order the
// span logs were recorded.
func (s *MockSpan) LoggedValue(key string) (string, bool) {
	for _, l := range s.Logs() {
		for _, f := range l.Fields {
			if f.Key == key {
				return f.ValueString, true
			}
		}
	}

	return "", false
}
