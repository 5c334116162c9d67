package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Metrics) string {
	t.Helper()
	mux := http.NewServeMux()
	m.RegisterHandler("/metrics", mux)

	rsp := httptest.NewRecorder()
	mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rsp.Code)

	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPrometheusCustomCounters(t *testing.T) {
	p := NewPrometheus(Options{})
	p.IncCounter("filter.cfForwardedUrl.forwarded")
	p.IncCounterBy("filter.cfForwardedUrl.forwarded", 2)
	p.IncFloatCounterBy("filter.cfForwardedUrl.forwarded", 0.5)
	p.IncCounter("filter.cfForwardedUrl.malformed")

	assert.Equal(t, 3.5, testutil.ToFloat64(p.customCounterM.WithLabelValues("filter.cfForwardedUrl.forwarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.customCounterM.WithLabelValues("filter.cfForwardedUrl.malformed")))

	out := scrape(t, p)
	assert.Contains(t, out, `routeservice_custom_total{key="filter.cfForwardedUrl.forwarded"} 3.5`)
}

func TestPrometheusPrefix(t *testing.T) {
	p := NewPrometheus(Options{Prefix: "cf."})
	p.IncRoutingFailures()
	assert.Contains(t, scrape(t, p), "cf_route_error_total 1")
}

func TestPrometheusGauge(t *testing.T) {
	p := NewPrometheus(Options{})
	p.UpdateGauge("connections", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(p.customGaugeM.WithLabelValues("connections")))
}

func TestPrometheusProxyMetrics(t *testing.T) {
	p := NewPrometheus(Options{
		EnableServeRouteMetrics:     true,
		EnableServeHostMetrics:      true,
		EnableServeStatusCodeMetric: true,
		EnableServeMethodMetric:     true,
	})

	start := time.Now().Add(-time.Millisecond)
	p.MeasureFilterRequest("cfForwardedUrl", start)
	p.MeasureFilterResponse("cfForwardedUrl", start)
	p.MeasureAllFiltersRequest("default", start)
	p.MeasureAllFiltersResponse("default", start)
	p.MeasureBackend("default", start)
	p.MeasureBackendHost("backend.internal:8080", start)
	p.MeasureResponse(200, "GET", "default", start)
	p.MeasureServe("default", "app.example.org", "GET", 200, start)
	p.MeasureBackend5xx(start)
	p.IncErrorsBackend("default")
	p.IncErrorsStreaming("default")

	assert.Equal(t, 1.0, testutil.ToFloat64(p.proxyBackendErrorsM.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.proxyStreamingErrorsM.WithLabelValues("default")))

	out := scrape(t, p)
	for _, s := range []string{
		`routeservice_filter_request_duration_seconds_count{filter="cfForwardedUrl"} 1`,
		`routeservice_filter_response_duration_seconds_count{filter="cfForwardedUrl"} 1`,
		`routeservice_filter_all_request_duration_seconds_count{route="default"} 1`,
		`routeservice_backend_combined_duration_seconds_count 1`,
		`routeservice_response_duration_seconds_count{code="200",method="GET",route="default"} 1`,
		`routeservice_serve_route_duration_seconds_count{code="200",method="GET",route="default"} 1`,
		`routeservice_serve_host_duration_seconds_count{code="200",host="app_example_org",method="GET"} 1`,
		`routeservice_backend_5xx_duration_seconds_count 1`,
	} {
		assert.Contains(t, out, s)
	}
}

func TestPrometheusCompatibilityDefaults(t *testing.T) {
	p := NewPrometheus(Options{DisableCompatibilityDefaults: true})
	p.IncErrorsBackend("default")
	p.MeasureAllFiltersRequest("default", time.Now())

	out := scrape(t, p)
	assert.NotContains(t, out, `routeservice_backend_error_total{route="default"}`)
	assert.NotContains(t, out, `routeservice_filter_all_request_duration_seconds_count{route="default"}`)
	assert.Contains(t, out, "routeservice_filter_all_combined_request_duration_seconds_count 1")
}

func TestPrometheusCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(Options{PrometheusRegistry: reg})
	p.IncCounter("foo")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "routeservice_custom_total" {
			found = true
		}
	}

	assert.True(t, found)
}
