package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind is the metrics backend selected by the metrics-flavour flag.
type Kind int

const (
	UnknownKind  Kind = 0
	CodaHaleKind Kind = 1 << iota
	PrometheusKind
	AllKind = CodaHaleKind | PrometheusKind
)

func (k Kind) String() string {
	switch k {
	case CodaHaleKind:
		return "codahale"
	case PrometheusKind:
		return "prometheus"
	case AllKind:
		return "all"
	default:
		return "unknown"
	}
}

// ParseMetricsKind parses a flavour name, case insensitive. The empty
// string selects codahale.
func ParseMetricsKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "codahale":
		return CodaHaleKind, nil
	case "prometheus":
		return PrometheusKind, nil
	case "all":
		return AllKind, nil
	default:
		return UnknownKind, fmt.Errorf("invalid metrics flavour: %s", s)
	}
}

// Metrics is the generic interface that all the required backends
// should implement to be a route service metrics backend.
type Metrics interface {
	// Filter specific metrics, also exposed to the filters by the
	// routing context.
	MeasureSince(key string, start time.Time)
	IncCounter(key string)
	IncCounterBy(key string, value int64)
	IncFloatCounterBy(key string, value float64)
	UpdateGauge(key string, value float64)

	// Proxy metrics.
	MeasureFilterRequest(filterName string, start time.Time)
	MeasureAllFiltersRequest(routeId string, start time.Time)
	MeasureBackend(routeId string, start time.Time)
	MeasureBackendHost(routeBackendHost string, start time.Time)
	MeasureFilterResponse(filterName string, start time.Time)
	MeasureAllFiltersResponse(routeId string, start time.Time)
	MeasureResponse(code int, method string, routeId string, start time.Time)
	MeasureServe(routeId, host, method string, code int, start time.Time)
	IncRoutingFailures()
	IncErrorsBackend(routeId string)
	MeasureBackend5xx(t time.Time)
	IncErrorsStreaming(routeId string)
	RegisterHandler(path string, handler *http.ServeMux)
	Close()
}

// Options for initializing metrics collection.
type Options struct {
	// the metric backend
	Format Kind

	// Common prefix for the keys of the different
	// collected metrics.
	Prefix string

	// If set, garbage collector metrics are collected
	// in addition to the http traffic metrics.
	EnableDebugGcMetrics bool

	// If set, Go runtime metrics are collected in
	// addition to the http traffic metrics.
	EnableRuntimeMetrics bool

	// If set, detailed total response time metrics will be collected
	// for each route, additionally grouped by status and method.
	EnableServeRouteMetrics bool

	// If set, detailed total response time metrics will be collected
	// for each host, additionally grouped by status and method.
	EnableServeHostMetrics bool

	// If set, the detailed total response time metrics will contain the
	// HTTP status code label.
	EnableServeStatusCodeMetric bool

	// If set, the detailed total response time metrics will contain the
	// HTTP method label.
	EnableServeMethodMetric bool

	// If set, detailed response time metrics will be collected
	// for each backend host
	EnableBackendHostMetrics bool

	// EnableAllFiltersMetrics enables collecting combined filter
	// metrics per each route. Without the DisableCompatibilityDefaults,
	// it is enabled by default.
	EnableAllFiltersMetrics bool

	// EnableCombinedResponseMetrics enables collecting response time
	// metrics combined for every route.
	EnableCombinedResponseMetrics bool

	// EnableRouteResponseMetrics enables collecting response time
	// metrics per each route. Without the DisableCompatibilityDefaults,
	// it is enabled by default.
	EnableRouteResponseMetrics bool

	// EnableRouteBackendErrorsCounters enables counters for backend
	// errors per each route. Without the DisableCompatibilityDefaults,
	// it is enabled by default.
	EnableRouteBackendErrorsCounters bool

	// EnableRouteStreamingErrorsCounters enables counters for streaming
	// errors per each route. Without the DisableCompatibilityDefaults,
	// it is enabled by default.
	EnableRouteStreamingErrorsCounters bool

	// EnableRouteBackendMetrics enables backend response time metrics
	// per each route. Without the DisableCompatibilityDefaults, it is
	// enabled by default.
	EnableRouteBackendMetrics bool

	// When set, makes the histograms use an exponentially decaying sample
	// instead of the default uniform one.
	UseExpDecaySample bool

	// Use custom buckets for prometheus histograms.
	HistogramBuckets []float64

	// The following options, for backwards compatibility, are true
	// by default: EnableAllFiltersMetrics, EnableRouteResponseMetrics,
	// EnableRouteBackendErrorsCounters, EnableRouteStreamingErrorsCounters,
	// EnableRouteBackendMetrics. With this compatibility flag, the default
	// for these options can be set to false.
	DisableCompatibilityDefaults bool

	// PrometheusRegistry is used by the Prometheus backend. When nil, a
	// fresh registry is created.
	PrometheusRegistry *prometheus.Registry
}

// NewDefaultHandler returns the default metrics handler, serving the
// metrics of m on /metrics, and 404 on any other path.
func NewDefaultHandler(m Metrics) http.Handler {
	mux := http.NewServeMux()
	m.RegisterHandler("/metrics", mux)
	return mux
}

// NewMetrics creates the metrics backend selected by o.Format.
func NewMetrics(o Options) Metrics {
	switch o.Format {
	case AllKind:
		return NewAll(o)
	case PrometheusKind:
		return NewPrometheus(o)
	default:
		return NewCodaHale(o)
	}
}
