package proxy

import (
	"net/http"
	"net/url"
	"os"
	"runtime"
	"sync"
	"time"

	ot "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/cfexamples/routeservice/filters/flowid"
	"github.com/cfexamples/routeservice/logging"
	"github.com/cfexamples/routeservice/metrics"
	"github.com/cfexamples/routeservice/routing"
	"github.com/cfexamples/routeservice/tracing"
)

// Proxy instances implement the route service proxying functionality.
// For initializing, see the WithParams the constructor and Params.
type Proxy struct {
	accessLogDisabled bool
	defaultHTTPStatus int
	route             *routing.Route
	roundTripper      *http.Transport
	flags             Flags
	metrics           metrics.Metrics
	quit              chan struct{}
	closeOnce         sync.Once
	log               logging.Logger
	tracing           *proxyTracing
	hostname          string
}

// WithParams returns an initialized Proxy.
func WithParams(p Params) *Proxy {
	p = p.withDefaults()
	tr := newTransport(p)

	quit := make(chan struct{})
	if p.CloseIdleConnsPeriod > 0 {
		go closeIdleConns(tr, p.CloseIdleConnsPeriod, quit)
	}

	return &Proxy{
		route:             p.Route,
		roundTripper:      tr,
		flags:             p.Flags,
		metrics:           p.Metrics,
		quit:              quit,
		log:               p.Log,
		defaultHTTPStatus: p.DefaultHTTPStatus,
		tracing:           newProxyTracing(p.OpenTracing),
		accessLogDisabled: p.AccessLogDisabled,
		hostname:          os.Getenv("HOSTNAME"),
	}
}

var stackOnce sync.Once

// tryCatch calls onErr when p panics. Only the first panic of the process
// gets a stack trace, the later ones an empty string.
func tryCatch(p func(), onErr func(err interface{}, stack string)) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		var stack string
		stackOnce.Do(func() {
			buf := make([]byte, 1024)
			stack = string(buf[:runtime.Stack(buf, false)])
		})

		onErr(err, stack)
	}()

	p()
}

func (p *Proxy) applyFilter(ctx *context, span ot.Span, fi *routing.RouteFilter, response bool) {
	start := time.Now()
	p.tracing.logFilterStart(span, fi.Name)
	defer p.tracing.logFilterEnd(span, fi.Name)

	tryCatch(func() {
		ctx.setMetricsPrefix(fi.Name)
		if response {
			fi.Response(ctx)
			p.metrics.MeasureFilterResponse(fi.Name, start)
			return
		}

		fi.Request(ctx)
		p.metrics.MeasureFilterRequest(fi.Name, start)
	}, func(err interface{}, stack string) {
		phase := "request"
		if response {
			phase = "response"
		}

		p.log.Errorf("error while processing filter during %s: %s: %v (%s)", phase, fi.Name, err, stack)
	})
}

// applyFiltersToRequest returns the filters that were executed, which is
// all of them, unless one of them served the request.
func (p *Proxy) applyFiltersToRequest(f []*routing.RouteFilter, ctx *context) []*routing.RouteFilter {
	if len(f) == 0 {
		return f
	}

	start := time.Now()
	span := tracing.CreateSpan("request_filters", ctx.request.Context(), p.tracing.tracer)
	defer span.Finish()
	ctx.parentSpan = span

	for i, fi := range f {
		p.applyFilter(ctx, span, fi, false)
		if ctx.shunted() {
			f = f[:i+1]
			break
		}
	}

	p.metrics.MeasureAllFiltersRequest(ctx.route.Id, start)
	return f
}

// applyFiltersToResponse executes the filters in reverse order.
func (p *Proxy) applyFiltersToResponse(f []*routing.RouteFilter, ctx *context) {
	if len(f) == 0 {
		return
	}

	start := time.Now()
	span := tracing.CreateSpan("response_filters", ctx.request.Context(), p.tracing.tracer)
	defer span.Finish()
	ctx.parentSpan = span

	for i := len(f) - 1; i >= 0; i-- {
		p.applyFilter(ctx, span, f[i], true)
	}

	p.metrics.MeasureAllFiltersResponse(ctx.route.Id, start)
}

func (p *Proxy) startProxySpan(ctx *context, req *http.Request) *http.Request {
	ctx.proxySpan = tracing.CreateSpan("proxy", req.Context(), p.tracing.tracer)
	p.tracing.
		setTag(ctx.proxySpan, SpanKindTag, SpanKindClient).
		setTag(ctx.proxySpan, RouteIDTag, ctx.route.Id).
		setTag(ctx.proxySpan, DestinationTag, ctx.destinationString())

	u := cloneURL(req.URL)
	u.RawQuery = ""
	u.User = nil
	p.setCommonSpanInfo(u, req, ctx.proxySpan)

	_ = p.tracing.tracer.Inject(ctx.proxySpan.Context(), ot.HTTPHeaders, ot.HTTPHeadersCarrier(req.Header))
	return req.WithContext(ot.ContextWithSpan(req.Context(), ctx.proxySpan))
}

func (p *Proxy) makeBackendRequest(ctx *context) (*http.Response, *proxyError) {
	req, err := mapRequest(ctx.request, ctx.route, ctx.destination, ctx.outgoingHost, p.flags.HopHeadersRemoval())
	if err != nil {
		p.log.Errorf("could not map backend request, caused by: %v", err)
		return nil, &proxyError{err: err}
	}

	req = p.startProxySpan(ctx, req)

	p.metrics.IncCounter("outgoing." + req.Proto)
	ctx.proxySpan.LogKV("http_roundtrip", StartEvent)
	rsp, err := p.roundTripper.RoundTrip(req)
	ctx.proxySpan.LogKV("http_roundtrip", EndEvent)

	if err != nil {
		perr := roundTripError(req, err)
		p.log.Errorf("failed to do backend roundtrip to %s: %v", ctx.destinationString(), perr)

		p.tracing.setTag(ctx.proxySpan, ErrorTag, true)
		if perr.code != StatusClientClosedRequest {
			p.tracing.setTag(ctx.proxySpan, HTTPStatusCodeTag, uint16(perr.status()))
		}

		ctx.proxySpan.LogKV("event", "error", "message", err.Error())
		return nil, perr
	}

	p.tracing.setTag(ctx.proxySpan, HTTPStatusCodeTag, uint16(rsp.StatusCode))
	return rsp, nil
}

func (p *Proxy) do(ctx *context) error {
	processed := p.applyFiltersToRequest(ctx.route.Filters, ctx)

	switch {
	case ctx.shunted():
		ctx.ensureDefaultResponse()
	case !ctx.hasDestination():
		p.metrics.IncRoutingFailures()
		p.log.Debugf("no destination for %v", ctx.request.URL)
		return errDestinationMissing
	default:
		start := time.Now()
		rsp, perr := p.makeBackendRequest(ctx)
		if perr != nil {
			p.metrics.IncErrorsBackend(ctx.route.Id)
			if perr.status() >= http.StatusInternalServerError {
				p.metrics.MeasureBackend5xx(start)
			}

			return perr
		}

		if rsp.StatusCode >= http.StatusInternalServerError {
			p.metrics.MeasureBackend5xx(start)
		}

		ctx.setResponse(rsp)
		p.metrics.MeasureBackend(ctx.route.Id, start)
		p.metrics.MeasureBackendHost(ctx.metricsHost(), start)
	}

	p.applyFiltersToResponse(processed, ctx)
	return nil
}

func (p *Proxy) serveResponse(ctx *context) {
	start := time.Now()
	p.tracing.logStreamEvent(ctx.proxySpan, StreamHeadersEvent, StartEvent)
	copyHeader(ctx.responseWriter.Header(), ctx.response.Header)
	p.tracing.logStreamEvent(ctx.proxySpan, StreamHeadersEvent, EndEvent)

	if err := ctx.request.Context().Err(); err != nil {
		p.log.Infof("Client request: %v", err)
		ctx.response.StatusCode = StatusClientClosedRequest
		p.tracing.setTag(ctx.proxySpan, ClientRequestStateTag, ClientRequestCanceled)
	}

	ctx.responseWriter.WriteHeader(ctx.response.StatusCode)
	ctx.responseWriter.Flush()

	if err := copyStream(ctx.responseWriter, ctx.response.Body, p.tracing, ctx.proxySpan); err != nil {
		p.metrics.IncErrorsStreaming(ctx.route.Id)
		p.log.Errorf("error while copying the response stream: %v", err)
		return
	}

	p.metrics.MeasureResponse(ctx.response.StatusCode, ctx.request.Method, ctx.route.Id, start)
}

// errorResponse sends the status mapped from err. Missing destinations
// get the default status, and are not logged as errors.
func (p *Proxy) errorResponse(ctx *context, err error) {
	code := errorStatus(err)
	if err == errDestinationMissing {
		code = p.defaultHTTPStatus
	} else {
		p.log.Errorf(
			"error while proxying, route %s with destination %s, status code %d: %v",
			ctx.route.Id,
			ctx.destinationString(),
			code,
			err,
		)
	}

	if span := ot.SpanFromContext(ctx.request.Context()); span != nil {
		p.tracing.setTag(span, HTTPStatusCodeTag, uint16(code))
	}

	http.Error(ctx.responseWriter, http.StatusText(code), code)
	p.metrics.MeasureServe(ctx.route.Id, ctx.metricsHost(), ctx.request.Method, code, ctx.startServe)
}

func (p *Proxy) startServerSpan(r *http.Request) ot.Span {
	var opts []ot.StartSpanOption
	if wireContext, err := p.tracing.tracer.Extract(ot.HTTPHeaders, ot.HTTPHeadersCarrier(r.Header)); err == nil {
		opts = append(opts, ext.RPCServerOption(wireContext))
	}

	span := p.tracing.tracer.StartSpan(p.tracing.initialOperationName, opts...)
	p.tracing.setTag(span, SpanKindTag, SpanKindServer)
	p.setCommonSpanInfo(r.URL, r, span)
	return span
}

func (p *Proxy) logAccess(lw *logging.LoggingWriter, r *http.Request, ctx *context, start time.Time) {
	if p.accessLogDisabled {
		return
	}

	entry := &logging.AccessEntry{
		Request:      r,
		ResponseSize: lw.GetBytes(),
		StatusCode:   lw.GetCode(),
		RequestTime:  start,
		Duration:     time.Since(start),
		FlowId:       ctx.request.Header.Get(flowid.HeaderName),
	}

	if ctx.destination != nil {
		entry.ForwardedURL = ctx.destination.Redacted()
	}

	logging.LogAccess(entry, map[string]interface{}{"route": p.route.Id})
}

func (p *Proxy) closeResponse(ctx *context) {
	if ctx.response == nil || ctx.response.Body == nil {
		return
	}

	if err := ctx.response.Body.Close(); err != nil {
		p.log.Errorf("error during closing the response body: %v", err)
	}
}

// http.Handler implementation
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := logging.NewLoggingWriter(w)
	p.metrics.IncCounter("incoming." + r.Proto)

	span := p.startServerSpan(r)
	r = r.WithContext(ot.ContextWithSpan(r.Context(), span))

	ctx := newContext(lw, r, p.metrics, p.route, p.flags.PreserveHost())
	ctx.startServe = start
	ctx.tracer = p.tracing.tracer
	ctx.parentSpan = span

	defer func() {
		if ctx.proxySpan != nil {
			ctx.proxySpan.Finish()
		}

		span.Finish()
	}()

	defer p.logAccess(lw, r, ctx, start)
	defer p.closeResponse(ctx)

	if err := p.do(ctx); err != nil {
		p.tracing.setTag(span, ErrorTag, true)
		p.errorResponse(ctx, err)
		return
	}

	p.serveResponse(ctx)
	p.metrics.MeasureServe(ctx.route.Id, ctx.metricsHost(), r.Method, ctx.response.StatusCode, start)
}

// Close stops closing the idle connections periodically, and closes the
// current ones.
func (p *Proxy) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.roundTripper.CloseIdleConnections()
	})

	return nil
}

func (p *Proxy) setCommonSpanInfo(u *url.URL, r *http.Request, s ot.Span) {
	p.tracing.
		setTag(s, ComponentTag, componentName).
		setTag(s, HTTPUrlTag, u.String()).
		setTag(s, HTTPMethodTag, r.Method).
		setTag(s, HostnameTag, p.hostname).
		setTag(s, HTTPRemoteAddrTag, r.RemoteAddr).
		setTag(s, HTTPPathTag, u.Path).
		setTag(s, HTTPHostTag, r.Host)

	if val := r.Header.Get(flowid.HeaderName); val != "" {
		p.tracing.setTag(s, FlowIDTag, val)
	}
}
