package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace          = "routeservice"
	promRouteSubsystem     = "route"
	promFilterSubsystem    = "filter"
	promProxySubsystem     = "backend"
	promStreamingSubsystem = "streaming"
	promResponseSubsystem  = "response"
	promServeSubsystem     = "serve"
	promCustomSubsystem    = "custom"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	// Metrics.
	routeErrorsM               prometheus.Counter
	responseM                  *prometheus.HistogramVec
	filterRequestM             *prometheus.HistogramVec
	filterAllRequestM          *prometheus.HistogramVec
	filterAllCombinedRequestM  prometheus.Histogram
	proxyBackendM              *prometheus.HistogramVec
	proxyBackendCombinedM      prometheus.Histogram
	filterResponseM            *prometheus.HistogramVec
	filterAllResponseM         *prometheus.HistogramVec
	filterAllCombinedResponseM prometheus.Histogram
	serveRouteM                *prometheus.HistogramVec
	serveHostM                 *prometheus.HistogramVec
	proxyBackend5xxM           prometheus.Histogram
	proxyBackendErrorsM        *prometheus.CounterVec
	proxyStreamingErrorsM      *prometheus.CounterVec
	customHistogramM           *prometheus.HistogramVec
	customCounterM             *prometheus.CounterVec
	customGaugeM               *prometheus.GaugeVec

	opts     Options
	registry prometheus.Gatherer
	handler  http.Handler
}

// promBuilder creates the collectors of one namespace and registers them.
type promBuilder struct {
	namespace string
	buckets   []float64
	registry  prometheus.Registerer
}

func (b promBuilder) histogramVec(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: b.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   b.buckets,
	}, labels)

	b.registry.MustRegister(h)
	return h
}

func (b promBuilder) histogram(subsystem, name, help string) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: b.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   b.buckets,
	})

	b.registry.MustRegister(h)
	return h
}

func (b promBuilder) counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: b.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)

	b.registry.MustRegister(c)
	return c
}

// NewPrometheus returns a new Prometheus metric backend. Without a
// registry in the options, it uses a private one.
func NewPrometheus(opts Options) *Prometheus {
	opts = applyCompatibilityDefaults(opts)

	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	registry := opts.PrometheusRegistry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	b := promBuilder{namespace: namespace, buckets: opts.HistogramBuckets, registry: registry}
	labels := serveLabels(opts)

	routeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promRouteSubsystem,
		Name:      "error_total",
		Help:      "The total of requests without a destination.",
	})

	customGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promCustomSubsystem,
		Name:      "gauges",
		Help:      "Gauges number of custom metrics.",
	}, []string{"key"})

	registry.MustRegister(routeErrors, customGauge)
	if opts.EnableRuntimeMetrics {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}

	return &Prometheus{
		routeErrorsM: routeErrors,
		customGaugeM: customGauge,

		responseM:                  b.histogramVec(promResponseSubsystem, "duration_seconds", "Duration in seconds of a response.", "code", "method", "route"),
		filterRequestM:             b.histogramVec(promFilterSubsystem, "request_duration_seconds", "Duration in seconds of a filter request.", "filter"),
		filterAllRequestM:          b.histogramVec(promFilterSubsystem, "all_request_duration_seconds", "Duration in seconds of a filter request by all filters.", "route"),
		filterAllCombinedRequestM:  b.histogram(promFilterSubsystem, "all_combined_request_duration_seconds", "Duration in seconds of a filter request combined by all filters."),
		proxyBackendM:              b.histogramVec(promProxySubsystem, "duration_seconds", "Duration in seconds of a proxy backend.", "route", "host"),
		proxyBackendCombinedM:      b.histogram(promProxySubsystem, "combined_duration_seconds", "Duration in seconds of a proxy backend combined."),
		filterResponseM:            b.histogramVec(promFilterSubsystem, "response_duration_seconds", "Duration in seconds of a filter response.", "filter"),
		filterAllResponseM:         b.histogramVec(promFilterSubsystem, "all_response_duration_seconds", "Duration in seconds of a filter response by all filters.", "route"),
		filterAllCombinedResponseM: b.histogram(promFilterSubsystem, "all_combined_response_duration_seconds", "Duration in seconds of a filter response combined by all filters."),
		serveRouteM:                b.histogramVec(promServeSubsystem, "route_duration_seconds", "Duration in seconds of serving a route.", append(labels, "route")...),
		serveHostM:                 b.histogramVec(promServeSubsystem, "host_duration_seconds", "Duration in seconds of serving a host.", append(labels[:len(labels):len(labels)], "host")...),
		proxyBackend5xxM:           b.histogram(promProxySubsystem, "5xx_duration_seconds", "Duration in seconds of backend 5xx."),
		proxyBackendErrorsM:        b.counterVec(promProxySubsystem, "error_total", "Total number of backend route errors.", "route"),
		proxyStreamingErrorsM:      b.counterVec(promStreamingSubsystem, "error_total", "Total number of streaming route errors.", "route"),
		customCounterM:             b.counterVec(promCustomSubsystem, "total", "Total number of custom metrics.", "key"),
		customHistogramM:           b.histogramVec(promCustomSubsystem, "duration_seconds", "Duration in seconds of custom metrics.", "key"),

		registry: registry,
		opts:     opts,
	}
}

func serveLabels(opts Options) []string {
	labels := make([]string, 0, 2)
	if opts.EnableServeStatusCodeMetric {
		labels = append(labels, "code")
	}

	if opts.EnableServeMethodMetric {
		labels = append(labels, "method")
	}

	return labels
}

func sinceSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureSince satisfies Metrics interface.
func (p *Prometheus) MeasureSince(key string, start time.Time) {
	p.customHistogramM.WithLabelValues(key).Observe(sinceSeconds(start))
}

// IncCounter satisfies Metrics interface.
func (p *Prometheus) IncCounter(key string) {
	p.customCounterM.WithLabelValues(key).Inc()
}

// IncCounterBy satisfies Metrics interface.
func (p *Prometheus) IncCounterBy(key string, value int64) {
	p.customCounterM.WithLabelValues(key).Add(float64(value))
}

// IncFloatCounterBy satisfies Metrics interface.
func (p *Prometheus) IncFloatCounterBy(key string, value float64) {
	p.customCounterM.WithLabelValues(key).Add(value)
}

// UpdateGauge satisfies Metrics interface.
func (p *Prometheus) UpdateGauge(key string, v float64) {
	p.customGaugeM.WithLabelValues(key).Set(v)
}

// MeasureFilterRequest satisfies Metrics interface.
func (p *Prometheus) MeasureFilterRequest(filterName string, start time.Time) {
	p.filterRequestM.WithLabelValues(filterName).Observe(sinceSeconds(start))
}

// MeasureAllFiltersRequest satisfies Metrics interface.
func (p *Prometheus) MeasureAllFiltersRequest(routeID string, start time.Time) {
	t := sinceSeconds(start)
	p.filterAllCombinedRequestM.Observe(t)
	if p.opts.EnableAllFiltersMetrics {
		p.filterAllRequestM.WithLabelValues(routeID).Observe(t)
	}
}

// MeasureBackend satisfies Metrics interface.
func (p *Prometheus) MeasureBackend(routeID string, start time.Time) {
	t := sinceSeconds(start)
	p.proxyBackendCombinedM.Observe(t)
	if p.opts.EnableRouteBackendMetrics {
		p.proxyBackendM.WithLabelValues(routeID, "").Observe(t)
	}
}

// MeasureBackendHost satisfies Metrics interface.
func (p *Prometheus) MeasureBackendHost(routeBackendHost string, start time.Time) {
	if p.opts.EnableBackendHostMetrics {
		p.proxyBackendM.WithLabelValues("", routeBackendHost).Observe(sinceSeconds(start))
	}
}

// MeasureFilterResponse satisfies Metrics interface.
func (p *Prometheus) MeasureFilterResponse(filterName string, start time.Time) {
	p.filterResponseM.WithLabelValues(filterName).Observe(sinceSeconds(start))
}

// MeasureAllFiltersResponse satisfies Metrics interface.
func (p *Prometheus) MeasureAllFiltersResponse(routeID string, start time.Time) {
	t := sinceSeconds(start)
	p.filterAllCombinedResponseM.Observe(t)
	if p.opts.EnableAllFiltersMetrics {
		p.filterAllResponseM.WithLabelValues(routeID).Observe(t)
	}
}

// MeasureResponse satisfies Metrics interface.
func (p *Prometheus) MeasureResponse(code int, method string, routeID string, start time.Time) {
	method = measuredMethod(method)
	t := sinceSeconds(start)
	if p.opts.EnableCombinedResponseMetrics {
		p.responseM.WithLabelValues(fmt.Sprint(code), method, "").Observe(t)
	}

	if p.opts.EnableRouteResponseMetrics {
		p.responseM.WithLabelValues(fmt.Sprint(code), method, routeID).Observe(t)
	}
}

// MeasureServe satisfies Metrics interface.
func (p *Prometheus) MeasureServe(routeID, host, method string, code int, start time.Time) {
	if !p.opts.EnableServeRouteMetrics && !p.opts.EnableServeHostMetrics {
		return
	}

	t := sinceSeconds(start)
	var values []string
	if p.opts.EnableServeStatusCodeMetric {
		values = append(values, fmt.Sprint(code))
	}

	if p.opts.EnableServeMethodMetric {
		values = append(values, measuredMethod(method))
	}

	if p.opts.EnableServeRouteMetrics {
		p.serveRouteM.WithLabelValues(append(values, routeID)...).Observe(t)
	}

	if p.opts.EnableServeHostMetrics {
		p.serveHostM.WithLabelValues(append(values, hostForKey(host))...).Observe(t)
	}
}

// IncRoutingFailures satisfies Metrics interface.
func (p *Prometheus) IncRoutingFailures() {
	p.routeErrorsM.Inc()
}

// IncErrorsBackend satisfies Metrics interface.
func (p *Prometheus) IncErrorsBackend(routeID string) {
	if p.opts.EnableRouteBackendErrorsCounters {
		p.proxyBackendErrorsM.WithLabelValues(routeID).Inc()
	}
}

// MeasureBackend5xx satisfies Metrics interface.
func (p *Prometheus) MeasureBackend5xx(start time.Time) {
	p.proxyBackend5xxM.Observe(sinceSeconds(start))
}

// IncErrorsStreaming satisfies Metrics interface.
func (p *Prometheus) IncErrorsStreaming(routeID string) {
	if p.opts.EnableRouteStreamingErrorsCounters {
		p.proxyStreamingErrorsM.WithLabelValues(routeID).Inc()
	}
}

func (p *Prometheus) Close() {}
