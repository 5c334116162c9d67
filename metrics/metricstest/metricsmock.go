// Package metricstest provides an in-memory metrics backend for tests.
package metricstest

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cfexamples/routeservice/metrics"
)

// MockMetrics records every measurement in memory in the key format of
// the CodaHale backend. The zero value is ready to use.
type MockMetrics struct {
	// Prefix is prepended to the keys of the filter metrics.
	Prefix string

	// Now, when set, is used instead of the current time for the
	// durations.
	Now time.Time

	mu            sync.Mutex
	counters      map[string]int64
	floatCounters map[string]float64
	gauges        map[string]float64
	measures      map[string][]time.Duration
}

var _ metrics.Metrics = &MockMetrics{}

var hostKeyReplacer = strings.NewReplacer(".", "_", ":", "__")

func hostForKey(h string) string {
	return hostKeyReplacer.Replace(h)
}

func (m *MockMetrics) locked(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counters == nil {
		m.counters = make(map[string]int64)
		m.floatCounters = make(map[string]float64)
		m.gauges = make(map[string]float64)
		m.measures = make(map[string][]time.Duration)
	}

	f()
}

func (m *MockMetrics) measure(key string, start time.Time) {
	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	m.locked(func() { m.measures[key] = append(m.measures[key], now.Sub(start)) })
}

func (m *MockMetrics) count(key string, value int64) {
	m.locked(func() { m.counters[key] += value })
}

func (m *MockMetrics) MeasureSince(key string, start time.Time) {
	m.measure(m.Prefix+key, start)
}

func (m *MockMetrics) IncCounter(key string) {
	m.IncCounterBy(key, 1)
}

func (m *MockMetrics) IncCounterBy(key string, value int64) {
	m.count(m.Prefix+key, value)
}

func (m *MockMetrics) IncFloatCounterBy(key string, value float64) {
	m.locked(func() { m.floatCounters[m.Prefix+key] += value })
}

func (m *MockMetrics) UpdateGauge(key string, value float64) {
	m.locked(func() { m.gauges[key] = value })
}

func (m *MockMetrics) MeasureFilterRequest(filterName string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyFilterRequest, filterName), start)
}

func (m *MockMetrics) MeasureAllFiltersRequest(routeID string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyFiltersRequest, routeID), start)
}

func (m *MockMetrics) MeasureBackend(routeID string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyProxyBackend, routeID), start)
}

func (m *MockMetrics) MeasureBackendHost(routeBackendHost string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyProxyBackendHost, hostForKey(routeBackendHost)), start)
}

func (m *MockMetrics) MeasureFilterResponse(filterName string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyFilterResponse, filterName), start)
}

func (m *MockMetrics) MeasureAllFiltersResponse(routeID string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyFiltersResponse, routeID), start)
}

func (m *MockMetrics) MeasureResponse(code int, method string, routeID string, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyResponseCombined, code, method), start)
	m.measure(fmt.Sprintf(metrics.KeyResponse, code, method, routeID), start)
}

func (m *MockMetrics) MeasureServe(routeID, host, method string, code int, start time.Time) {
	m.measure(fmt.Sprintf(metrics.KeyServeRoute, routeID, method, code), start)
	m.measure(fmt.Sprintf(metrics.KeyServeHost, hostForKey(host), method, code), start)
}

func (m *MockMetrics) IncRoutingFailures() {
	m.count(metrics.KeyRouteFailure, 1)
}

func (m *MockMetrics) IncErrorsBackend(routeID string) {
	m.count(fmt.Sprintf(metrics.KeyErrorsBackend, routeID), 1)
}

func (m *MockMetrics) MeasureBackend5xx(start time.Time) {
	m.measure(metrics.Key5xxsBackend, start)
}

func (m *MockMetrics) IncErrorsStreaming(routeID string) {
	m.count(fmt.Sprintf(metrics.KeyErrorsStreaming, routeID), 1)
}

func (*MockMetrics) RegisterHandler(string, *http.ServeMux) {}

func (*MockMetrics) Close() {}

// Counter returns the value of an integer counter.
func (m *MockMetrics) Counter(key string) (v int64, ok bool) {
	m.locked(func() { v, ok = m.counters[key] })
	return
}

// FloatCounter returns the value of a float counter.
func (m *MockMetrics) FloatCounter(key string) (v float64, ok bool) {
	m.locked(func() { v, ok = m.floatCounters[key] })
	return
}

func (m *MockMetrics) Gauge(key string) (v float64, ok bool) {
	m.locked(func() { v, ok = m.gauges[key] })
	return
}

// Measure returns the recorded durations of key, in the order of
// recording.
func (m *MockMetrics) Measure(key string) (d []time.Duration, ok bool) {
	m.locked(func() {
		d, ok = m.measures[key]
		d = append([]time.Duration(nil), d...)
	})

	return
}

// Timer is an alias of Measure.
func (m *MockMetrics) Timer(key string) ([]time.Duration, bool) {
	return m.Measure(key)
}
