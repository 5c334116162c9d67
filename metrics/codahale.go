package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

const (
	KeyRouteFailure               = "routefailure"
	KeyFilterRequest              = "filter.%s.request"
	KeyFiltersRequest             = "allfilters.request.%s"
	KeyAllFiltersRequestCombined  = "allfilters.combined.request"
	KeyProxyBackend               = "backend.%s"
	KeyProxyBackendCombined       = "all.backend"
	KeyProxyBackendHost           = "backendhost.%s"
	KeyFilterResponse             = "filter.%s.response"
	KeyFiltersResponse            = "allfilters.response.%s"
	KeyAllFiltersResponseCombined = "allfilters.combined.response"
	KeyResponse                   = "response.%d.%s.routeservice.%s"
	KeyResponseCombined           = "all.response.%d.%s.routeservice"
	KeyServeRoute                 = "serveroute.%s.%s.%d"
	KeyServeHost                  = "servehost.%s.%s.%d"
	Key5xxsBackend                = "all.backend.5xx"

	KeyErrorsBackend   = "errors.backend.%s"
	KeyErrorsStreaming = "errors.streaming.%s"

	statsRefreshDuration = time.Duration(5 * time.Second)

	defaultUniformReservoirSize  = 1024
	defaultExpDecayReservoirSize = 1028
	defaultExpDecayAlpha         = 0.015
)

// CodaHale is the CodaHale format backend, implements Metrics interface in DropWizard's CodaHale metrics format.
// The timers and the counters are updated asynchronously.
type CodaHale struct {
	reg        metrics.Registry
	newTimer   func() metrics.Timer
	newCounter func() metrics.Counter
	newGauge   func() metrics.GaugeFloat64
	options    Options
	handler    http.Handler
	quit       chan struct{}
	closeOnce  sync.Once
}

// NewCodaHale returns a new CodaHale backend of metrics.
func NewCodaHale(o Options) *CodaHale {
	o = applyCompatibilityDefaults(o)
	createSample := sampleFactory(o)

	c := &CodaHale{
		reg:        metrics.NewRegistry(),
		newTimer:   func() metrics.Timer { return createTimer(createSample()) },
		newCounter: metrics.NewCounter,
		newGauge:   metrics.NewGaugeFloat64,
		options:    o,
		quit:       make(chan struct{}),
	}

	if o.EnableDebugGcMetrics {
		metrics.RegisterDebugGCStats(c.reg)
	}

	if o.EnableRuntimeMetrics {
		metrics.RegisterRuntimeMemStats(c.reg)
	}

	if o.EnableDebugGcMetrics || o.EnableRuntimeMetrics {
		go c.captureStats(statsRefreshDuration)
	}

	return c
}

// NewVoid returns a backend that registers every metric as a no-op.
func NewVoid() *CodaHale {
	return &CodaHale{
		reg:        metrics.NewRegistry(),
		newTimer:   func() metrics.Timer { return metrics.NilTimer{} },
		newCounter: func() metrics.Counter { return metrics.NilCounter{} },
		newGauge:   func() metrics.GaugeFloat64 { return metrics.NilGaugeFloat64{} },
		quit:       make(chan struct{}),
	}
}

// captureStats refreshes the runtime and the GC stats until Close.
func (c *CodaHale) captureStats(d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.options.EnableDebugGcMetrics {
				metrics.CaptureDebugGCStatsOnce(c.reg)
			}

			if c.options.EnableRuntimeMetrics {
				metrics.CaptureRuntimeMemStatsOnce(c.reg)
			}
		case <-c.quit:
			return
		}
	}
}

func (c *CodaHale) timer(key string) metrics.Timer {
	return c.reg.GetOrRegister(key, c.newTimer).(metrics.Timer)
}

func (c *CodaHale) counter(key string) metrics.Counter {
	return c.reg.GetOrRegister(key, c.newCounter).(metrics.Counter)
}

func (c *CodaHale) gauge(key string) metrics.GaugeFloat64 {
	return c.reg.GetOrRegister(key, c.newGauge).(metrics.GaugeFloat64)
}

func (c *CodaHale) measureSince(key string, start time.Time) {
	d := time.Since(start)
	go func() { c.timer(key).Update(d) }()
}

func (c *CodaHale) incCounter(key string, value int64) {
	go func() { c.counter(key).Inc(value) }()
}

func (c *CodaHale) MeasureSince(key string, start time.Time) {
	c.measureSince(key, start)
}

func (c *CodaHale) UpdateGauge(key string, v float64) {
	c.gauge(key).Update(v)
}

func (c *CodaHale) IncCounter(key string) {
	c.incCounter(key, 1)
}

func (c *CodaHale) IncCounterBy(key string, value int64) {
	c.incCounter(key, value)
}

// IncFloatCounterBy is a no-op, go-metrics has no float counters.
func (c *CodaHale) IncFloatCounterBy(string, float64) {}

func (c *CodaHale) MeasureFilterRequest(filterName string, start time.Time) {
	c.measureSince(fmt.Sprintf(KeyFilterRequest, filterName), start)
}

func (c *CodaHale) MeasureAllFiltersRequest(routeId string, start time.Time) {
	c.measureSince(KeyAllFiltersRequestCombined, start)
	if c.options.EnableAllFiltersMetrics {
		c.measureSince(fmt.Sprintf(KeyFiltersRequest, routeId), start)
	}
}

func (c *CodaHale) MeasureBackend(routeId string, start time.Time) {
	c.measureSince(KeyProxyBackendCombined, start)
	if c.options.EnableRouteBackendMetrics {
		c.measureSince(fmt.Sprintf(KeyProxyBackend, routeId), start)
	}
}

func (c *CodaHale) MeasureBackendHost(routeBackendHost string, start time.Time) {
	if c.options.EnableBackendHostMetrics {
		c.measureSince(fmt.Sprintf(KeyProxyBackendHost, hostForKey(routeBackendHost)), start)
	}
}

func (c *CodaHale) MeasureFilterResponse(filterName string, start time.Time) {
	c.measureSince(fmt.Sprintf(KeyFilterResponse, filterName), start)
}

func (c *CodaHale) MeasureAllFiltersResponse(routeId string, start time.Time) {
	c.measureSince(KeyAllFiltersResponseCombined, start)
	if c.options.EnableAllFiltersMetrics {
		c.measureSince(fmt.Sprintf(KeyFiltersResponse, routeId), start)
	}
}

func (c *CodaHale) MeasureResponse(code int, method string, routeId string, start time.Time) {
	method = measuredMethod(method)
	if c.options.EnableCombinedResponseMetrics {
		c.measureSince(fmt.Sprintf(KeyResponseCombined, code, method), start)
	}

	if c.options.EnableRouteResponseMetrics {
		c.measureSince(fmt.Sprintf(KeyResponse, code, method, routeId), start)
	}
}

func (c *CodaHale) MeasureServe(routeId, host, method string, code int, start time.Time) {
	method = measuredMethod(method)
	if c.options.EnableServeRouteMetrics {
		c.measureSince(fmt.Sprintf(KeyServeRoute, routeId, method, code), start)
	}

	if c.options.EnableServeHostMetrics {
		c.measureSince(fmt.Sprintf(KeyServeHost, hostForKey(host), method, code), start)
	}
}

func (c *CodaHale) IncRoutingFailures() {
	c.incCounter(KeyRouteFailure, 1)
}

func (c *CodaHale) IncErrorsBackend(routeId string) {
	if c.options.EnableRouteBackendErrorsCounters {
		c.incCounter(fmt.Sprintf(KeyErrorsBackend, routeId), 1)
	}
}

func (c *CodaHale) MeasureBackend5xx(t time.Time) {
	c.measureSince(Key5xxsBackend, t)
}

func (c *CodaHale) IncErrorsStreaming(routeId string) {
	if c.options.EnableRouteStreamingErrorsCounters {
		c.incCounter(fmt.Sprintf(KeyErrorsStreaming, routeId), 1)
	}
}

// Close stops refreshing the runtime stats.
func (c *CodaHale) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *CodaHale) RegisterHandler(path string, handler *http.ServeMux) {
	h := c.getHandler(path)
	handler.Handle(path, h)
}

func (c *CodaHale) CreateHandler(path string) http.Handler {
	return &codaHaleMetricsHandler{path: path, registry: c.reg, options: c.options}
}

func (c *CodaHale) getHandler(path string) http.Handler {
	if c.handler != nil {
		return c.handler
	}

	c.handler = c.CreateHandler(path)
	return c.handler
}

type codaHaleMetricsHandler struct {
	path     string
	registry metrics.Registry
	options  Options
}

var percentiles = []float64{0.5, 0.75, 0.95, 0.99, 0.999}

// ServeHTTP responds with the metrics selected by the last path segment
// after the handler path, or with every metric when it is empty.
func (c *codaHaleMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, key := path.Split(strings.TrimPrefix(r.URL.Path, c.path))
	selected := selectMetrics(c.registry, c.options.Prefix, key)
	if key != "" && len(selected) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(selected); err != nil {
		log.Errorf("failed to encode the metrics: %v", err)
	}
}

// selectMetrics returns the metric registered with the key, or, when
// there is no such metric, the ones whose name starts with the key. The
// returned names carry the prefix.
func selectMetrics(reg metrics.Registry, prefix, key string) exportedMetrics {
	selected := make(exportedMetrics)

	name := strings.TrimPrefix(key, prefix)
	if m := reg.Get(name); m != nil {
		selected[key] = m
		return selected
	}

	reg.Each(func(n string, m interface{}) {
		if strings.HasPrefix(n, name) {
			selected[prefix+n] = m
		}
	})

	return selected
}

type exportedMetrics map[string]interface{}

type percentileSnapshot interface {
	Count() int64
	Min() int64
	Max() int64
	Mean() float64
	StdDev() float64
	Percentiles([]float64) []float64
}

func distributionValues(s percentileSnapshot) map[string]interface{} {
	ps := s.Percentiles(percentiles)
	return map[string]interface{}{
		"count":  s.Count(),
		"min":    s.Min(),
		"max":    s.Max(),
		"mean":   s.Mean(),
		"stddev": s.StdDev(),
		"median": ps[0],
		"75%":    ps[1],
		"95%":    ps[2],
		"99%":    ps[3],
		"99.9%":  ps[4],
	}
}

func exportValues(metric interface{}) (family string, values map[string]interface{}) {
	switch m := metric.(type) {
	case metrics.Gauge:
		return "gauges", map[string]interface{}{"value": m.Snapshot().Value()}
	case metrics.GaugeFloat64:
		return "gauges", map[string]interface{}{"value": m.Snapshot().Value()}
	case metrics.Histogram:
		return "histograms", distributionValues(m.Snapshot())
	case metrics.Timer:
		t := m.Snapshot()
		values = distributionValues(t)
		values["1m.rate"] = t.Rate1()
		values["5m.rate"] = t.Rate5()
		values["15m.rate"] = t.Rate15()
		values["mean.rate"] = t.RateMean()
		return "timers", values
	case metrics.Counter:
		return "counters", map[string]interface{}{"count": m.Snapshot().Count()}
	default:
		return "unknown", map[string]interface{}{"error": fmt.Sprintf("unknown metrics type %T", m)}
	}
}

// MarshalJSON groups the metrics by family, in the CodaHale JSON format.
func (sm exportedMetrics) MarshalJSON() ([]byte, error) {
	data := make(map[string]map[string]interface{})
	for name, metric := range sm {
		family, values := exportValues(metric)
		if data[family] == nil {
			data[family] = make(map[string]interface{})
		}

		data[family][name] = values
	}

	return json.Marshal(data)
}
