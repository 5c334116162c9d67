package proxy

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	ot "github.com/opentracing/opentracing-go"

	"github.com/cfexamples/routeservice/filters"
	"github.com/cfexamples/routeservice/metrics"
	"github.com/cfexamples/routeservice/routing"
)

type flushedResponseWriter interface {
	http.ResponseWriter
	http.Flusher
}

type context struct {
	responseWriter     flushedResponseWriter
	request            *http.Request
	response           *http.Response
	route              *routing.Route
	servedWithResponse bool
	stateBag           map[string]interface{}
	outgoingHost       string
	destination        *url.URL
	metrics            *filterMetrics
	tracer             ot.Tracer
	parentSpan         ot.Span
	proxySpan          ot.Span
	startServe         time.Time
}

type filterMetrics struct {
	prefix string
	impl   metrics.Metrics
}

func defaultBody() io.ReadCloser {
	return io.NopCloser(&bytes.Buffer{})
}

func defaultResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       defaultBody(),
		Request:    r,
	}
}

func cloneURL(u *url.URL) *url.URL {
	uc := *u
	if u.User != nil {
		user := *u.User
		uc.User = &user
	}

	return &uc
}

func newContext(w flushedResponseWriter, r *http.Request, m metrics.Metrics, rt *routing.Route, preserveHost bool) *context {
	c := &context{
		responseWriter: w,
		request:        r,
		route:          rt,
		stateBag:       make(map[string]interface{}),
		metrics:        &filterMetrics{impl: m},
	}

	if preserveHost || rt.Host == "" {
		c.outgoingHost = r.Host
	} else {
		c.outgoingHost = rt.Host
	}

	return c
}

func (c *context) ensureDefaultResponse() {
	if c.response == nil {
		c.response = defaultResponse(c.request)
		return
	}

	if c.response.Header == nil {
		c.response.Header = make(http.Header)
	}

	if c.response.Body == nil {
		c.response.Body = defaultBody()
	}
}

func (c *context) shunted() bool {
	return c.servedWithResponse
}

func (c *context) setResponse(r *http.Response) {
	c.response = r
}

// the destination set by a filter takes precedence over the route backend
func (c *context) hasDestination() bool {
	return c.destination != nil || !c.route.Shunt
}

func (c *context) destinationString() string {
	if c.destination != nil {
		return c.destination.Redacted()
	}

	return c.route.Backend
}

func (c *context) metricsHost() string {
	if c.destination != nil {
		return c.destination.Host
	}

	if c.route.Host != "" {
		return c.route.Host
	}

	return c.request.Host
}

func (c *context) setMetricsPrefix(prefix string) {
	c.metrics.prefix = "filter." + prefix + "."
}

func (c *context) ResponseWriter() http.ResponseWriter { return c.responseWriter }
func (c *context) Request() *http.Request              { return c.request }
func (c *context) Response() *http.Response            { return c.response }
func (c *context) RouteId() string                     { return c.route.Id }
func (c *context) Served() bool                        { return c.servedWithResponse }
func (c *context) StateBag() map[string]interface{}    { return c.stateBag }
func (c *context) BackendUrl() string                  { return c.route.Backend }
func (c *context) OutgoingHost() string                { return c.outgoingHost }
func (c *context) SetOutgoingHost(h string)            { c.outgoingHost = h }
func (c *context) Destination() *url.URL               { return c.destination }
func (c *context) Metrics() filters.Metrics            { return c.metrics }
func (c *context) Tracer() ot.Tracer                   { return c.tracer }
func (c *context) ParentSpan() ot.Span                 { return c.parentSpan }

func (c *context) SetDestination(u *url.URL) {
	if u == nil {
		c.destination = nil
		return
	}

	c.destination = cloneURL(u)
}

func (c *context) Serve(r *http.Response) {
	r.Request = c.Request()

	if r.Header == nil {
		r.Header = make(http.Header)
	}

	if r.Body == nil {
		r.Body = defaultBody()
	}

	c.servedWithResponse = true
	c.response = r
}

func (m *filterMetrics) MeasureSince(key string, start time.Time) {
	m.impl.MeasureSince(m.prefix+key, start)
}

func (m *filterMetrics) IncCounter(key string) {
	m.impl.IncCounter(m.prefix + key)
}

func (m *filterMetrics) IncCounterBy(key string, value int64) {
	m.impl.IncCounterBy(m.prefix+key, value)
}

func (m *filterMetrics) IncFloatCounterBy(key string, value float64) {
	m.impl.IncFloatCounterBy(m.prefix+key, value)
}
