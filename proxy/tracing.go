package proxy

import (
	ot "github.com/opentracing/opentracing-go"
)

const (
	ClientRequestStateTag = "client.request"
	ComponentTag          = "component"
	ErrorTag              = "error"
	FlowIDTag             = "flow_id"
	HostnameTag           = "hostname"
	HTTPHostTag           = "http.host"
	HTTPMethodTag         = "http.method"
	HTTPRemoteAddrTag     = "http.remote_addr"
	HTTPPathTag           = "http.path"
	HTTPUrlTag            = "http.url"
	HTTPStatusCodeTag     = "http.status_code"
	RouteIDTag            = "routeservice.route_id"
	DestinationTag        = "routeservice.destination"
	SpanKindTag           = "span.kind"

	ClientRequestCanceled = "canceled"
	SpanKindClient        = "client"
	SpanKindServer        = "server"

	EndEvent           = "end"
	StartEvent         = "start"
	StreamHeadersEvent = "stream_Headers"
	StreamBodyEvent    = "streamBody.byte"

	componentName = "routeservice"
)

// OpenTracingParams contains the parameters of the opentracing
// instrumentation of the proxy.
type OpenTracingParams struct {
	// Tracer holds the tracer enabled for this proxy instance
	Tracer ot.Tracer

	// InitialSpan can override the default initial, pre-routing, span name.
	// Default: "ingress".
	InitialSpan string

	// LogFilterEvents enables the behavior to mark start and completion times of filters
	// on the span representing request filters being processed.
	// Default: false
	LogFilterEvents bool

	// LogStreamEvents enables the logs that marks the times when response headers & payload are streamed to
	// the client
	// Default: false
	LogStreamEvents bool

	// ExcludeTags controls what tags are disabled. Any tag that is listed here will be ignored.
	ExcludeTags []string
}

type proxyTracing struct {
	tracer                   ot.Tracer
	initialOperationName     string
	logFilterLifecycleEvents bool
	logStreamEvents          bool
	excludeTags              map[string]bool
}

func newProxyTracing(p *OpenTracingParams) *proxyTracing {
	if p == nil {
		p = &OpenTracingParams{}
	}

	initial := p.InitialSpan
	if initial == "" {
		initial = "ingress"
	}

	tracer := p.Tracer
	if tracer == nil {
		tracer = &ot.NoopTracer{}
	}

	excludeTags := make(map[string]bool, len(p.ExcludeTags))
	for _, tag := range p.ExcludeTags {
		excludeTags[tag] = true
	}

	return &proxyTracing{
		tracer:                   tracer,
		initialOperationName:     initial,
		logFilterLifecycleEvents: p.LogFilterEvents,
		logStreamEvents:          p.LogStreamEvents,
		excludeTags:              excludeTags,
	}
}

// logEvent logs on the span only when the event kind is enabled.
func logEvent(enabled bool, span ot.Span, event, value string) {
	if enabled && span != nil {
		span.LogKV(event, value)
	}
}

// setTag ignores the excluded tags. It returns the receiver, so that
// the calls can be chained.
func (t *proxyTracing) setTag(span ot.Span, key string, value interface{}) *proxyTracing {
	if span != nil && !t.excludeTags[key] {
		span.SetTag(key, value)
	}

	return t
}

func (t *proxyTracing) logStreamEvent(span ot.Span, event, value string) {
	logEvent(t.logStreamEvents, span, event, value)
}

func (t *proxyTracing) logFilterStart(span ot.Span, filterName string) {
	logEvent(t.logFilterLifecycleEvents, span, filterName, StartEvent)
}

func (t *proxyTracing) logFilterEnd(span ot.Span, filterName string) {
	logEvent(t.logFilterLifecycleEvents, span, filterName, EndEvent)
}
