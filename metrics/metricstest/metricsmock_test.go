package metricstest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cfexamples/routeservice/metrics/metricstest"
)

func TestMockMetricsCounters(t *testing.T) {
	m := &metricstest.MockMetrics{Prefix: "filter.cfForwardedUrl."}
	m.IncCounter("forwarded")
	m.IncCounterBy("forwarded", 2)
	m.IncFloatCounterBy("ratio", 0.5)

	v, ok := m.Counter("filter.cfForwardedUrl.forwarded")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok = m.Counter("forwarded")
	assert.False(t, ok)

	f, ok := m.FloatCounter("filter.cfForwardedUrl.ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)
}

func TestMockMetricsMeasures(t *testing.T) {
	now := time.Now()
	m := &metricstest.MockMetrics{Now: now}
	m.MeasureSince("custom", now.Add(-time.Second))
	m.MeasureFilterRequest("cfForwardedUrl", now.Add(-2*time.Second))
	m.MeasureServe("default", "example.org:80", "GET", 200, now.Add(-3*time.Second))

	d, ok := m.Measure("custom")
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{time.Second}, d)

	d, ok = m.Timer("filter.cfForwardedUrl.request")
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{2 * time.Second}, d)

	_, ok = m.Timer("servehost.example_org__80.GET.200")
	assert.True(t, ok)
}

func TestMockMetricsGauges(t *testing.T) {
	m := &metricstest.MockMetrics{}
	m.UpdateGauge("connections", 3)
	v, ok := m.Gauge("connections")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}
