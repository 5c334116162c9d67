package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c *CodaHale, key string) func() bool {
	return func() bool {
		return counterCount(c, key) > 0
	}
}

func counterCount(c *CodaHale, key string) int64 {
	m, ok := c.reg.Get(key).(metrics.Counter)
	if !ok {
		return 0
	}

	return m.Snapshot().Count()
}

func timerCount(c *CodaHale, key string) int64 {
	m, ok := c.reg.Get(key).(metrics.Timer)
	if !ok {
		return 0
	}

	return m.Snapshot().Count()
}

func TestCodaHaleCounters(t *testing.T) {
	c := NewCodaHale(Options{})
	c.IncCounter("filter.cfForwardedUrl.passthrough")
	c.IncCounterBy("filter.cfForwardedUrl.passthrough", 2)

	assert.Eventually(t, func() bool {
		return counterCount(c, "filter.cfForwardedUrl.passthrough") == 3
	}, time.Second, 10*time.Millisecond)
}

func TestCodaHaleProxyMetrics(t *testing.T) {
	c := NewCodaHale(Options{EnableServeRouteMetrics: true, EnableServeHostMetrics: true, EnableBackendHostMetrics: true})
	start := time.Now()

	c.MeasureFilterRequest("flowId", start)
	c.MeasureAllFiltersRequest("default", start)
	c.MeasureBackend("default", start)
	c.MeasureBackendHost("backend.internal:8080", start)
	c.MeasureResponse(200, "PURGE", "default", start)
	c.MeasureServe("default", "app.example.org", "GET", 200, start)
	c.IncRoutingFailures()
	c.IncErrorsBackend("default")

	for _, key := range []string{
		"filter.flowId.request",
		"allfilters.combined.request",
		"allfilters.request.default",
		"all.backend",
		"backend.default",
		"backendhost.backend_internal__8080",
		"response.200._unknownmethod_.routeservice.default",
		"serveroute.default.GET.200",
		"servehost.app_example_org.GET.200",
	} {
		key := key
		assert.Eventually(t, func() bool { return timerCount(c, key) == 1 }, time.Second, 10*time.Millisecond, key)
	}

	assert.Eventually(t, counterValue(c, KeyRouteFailure), time.Second, 10*time.Millisecond)
	assert.Eventually(t, counterValue(c, "errors.backend.default"), time.Second, 10*time.Millisecond)
}

func TestCodaHaleGauge(t *testing.T) {
	c := NewCodaHale(Options{})
	c.UpdateGauge("connections", 3)
	assert.Equal(t, 3.0, c.reg.Get("connections").(metrics.GaugeFloat64).Snapshot().Value())
}

func TestCodaHaleHandler(t *testing.T) {
	c := NewCodaHale(Options{Prefix: "routeservice."})
	c.IncCounter("filter.cfForwardedUrl.forwarded")
	require.Eventually(t, counterValue(c, "filter.cfForwardedUrl.forwarded"), time.Second, 10*time.Millisecond)

	mux := http.NewServeMux()
	c.RegisterHandler("/metrics/", mux)

	t.Run("all", func(t *testing.T) {
		rsp := httptest.NewRecorder()
		mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics/", nil))
		require.Equal(t, http.StatusOK, rsp.Code)
		assert.Equal(t, "application/json", rsp.Header().Get("Content-Type"))

		var data map[string]map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(rsp.Body).Decode(&data))
		assert.Equal(t, 1.0, data["counters"]["routeservice.filter.cfForwardedUrl.forwarded"]["count"])
	})

	t.Run("by key", func(t *testing.T) {
		rsp := httptest.NewRecorder()
		mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics/routeservice.filter.cfForwardedUrl.forwarded", nil))
		assert.Equal(t, http.StatusOK, rsp.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rsp := httptest.NewRecorder()
		mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics/nonexistent", nil))
		assert.Equal(t, http.StatusNotFound, rsp.Code)
	})

	t.Run("post not allowed", func(t *testing.T) {
		rsp := httptest.NewRecorder()
		mux.ServeHTTP(rsp, httptest.NewRequest("POST", "/metrics/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rsp.Code)
	})
}

func TestVoid(t *testing.T) {
	v := NewVoid()
	v.IncCounter("foo")
	v.MeasureSince("bar", time.Now())
	v.UpdateGauge("baz", 1)

	assert.Eventually(t, func() bool {
		_, ok := v.reg.Get("foo").(metrics.NilCounter)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestCodaHaleRuntimeStats(t *testing.T) {
	c := NewCodaHale(Options{EnableRuntimeMetrics: true, EnableDebugGcMetrics: true})
	assert.NotNil(t, c.reg.Get("runtime.MemStats.HeapAlloc"))
	assert.NotNil(t, c.reg.Get("debug.GCStats.NumGC"))

	c.Close()
	c.Close()
}
