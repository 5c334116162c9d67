// Package filtertest implements mock versions of the Filter, Spec and
// FilterContext interfaces used during tests.
package filtertest

import (
	"net/http"
	"net/url"

	"github.com/opentracing/opentracing-go"

	"github.com/cfexamples/routeservice/filters"
)

// Noop filter, used to verify the filter name and the args in the route.
// Implements both the Filter and the Spec interfaces.
type Filter struct {
	FilterName string
	Args       []interface{}
}

// Simple FilterContext implementation.
type Context struct {
	FResponseWriter http.ResponseWriter
	FRequest        *http.Request
	FResponse       *http.Response
	FServed         bool
	FRouteId        string
	FStateBag       map[string]interface{}
	FBackendUrl     string
	FOutgoingHost   string
	FDestination    *url.URL
	FMetrics        filters.Metrics
	FTracer         opentracing.Tracer
	FParentSpan     opentracing.Span
}

func (spec *Filter) Name() string                    { return spec.FilterName }
func (f *Filter) Request(ctx filters.FilterContext)  {}
func (f *Filter) Response(ctx filters.FilterContext) {}

func (fc *Context) ResponseWriter() http.ResponseWriter { return fc.FResponseWriter }
func (fc *Context) Request() *http.Request              { return fc.FRequest }
func (fc *Context) Response() *http.Response            { return fc.FResponse }
func (fc *Context) Served() bool                        { return fc.FServed }
func (fc *Context) RouteId() string                     { return fc.FRouteId }
func (fc *Context) BackendUrl() string                  { return fc.FBackendUrl }
func (fc *Context) OutgoingHost() string                { return fc.FOutgoingHost }
func (fc *Context) SetOutgoingHost(h string)            { fc.FOutgoingHost = h }
func (fc *Context) Destination() *url.URL               { return fc.FDestination }
func (fc *Context) SetDestination(u *url.URL)           { fc.FDestination = u }

func (fc *Context) StateBag() map[string]interface{} {
	if fc.FStateBag == nil {
		fc.FStateBag = make(map[string]interface{})
	}

	return fc.FStateBag
}

func (fc *Context) Metrics() filters.Metrics {
	if fc.FMetrics == nil {
		return voidMetrics{}
	}

	return fc.FMetrics
}

func (fc *Context) Tracer() opentracing.Tracer {
	if fc.FTracer != nil {
		return fc.FTracer
	}
	return &opentracing.NoopTracer{}
}

func (fc *Context) ParentSpan() opentracing.Span {
	if fc.FParentSpan != nil {
		return fc.FParentSpan
	}
	return opentracing.StartSpan("test_span")
}

func (fc *Context) Serve(resp *http.Response) {
	fc.FServed = true
	fc.FResponse = resp
}

func (spec *Filter) CreateFilter(config []interface{}) (filters.Filter, error) {
	return &Filter{spec.FilterName, config}, nil
}
