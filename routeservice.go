package routeservice

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	ot "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"

	"github.com/cfexamples/routeservice/filters"
	"github.com/cfexamples/routeservice/filters/flowid"
	cfroute "github.com/cfexamples/routeservice/filters/routeservice"
	"github.com/cfexamples/routeservice/logging"
	"github.com/cfexamples/routeservice/metrics"
	"github.com/cfexamples/routeservice/proxy"
	"github.com/cfexamples/routeservice/routing"
	"github.com/cfexamples/routeservice/tracing"
)

// Options to start the route service with.
type Options struct {
	// Network address that the route service should listen on.
	Address string

	// Network address used for exposing the /metrics and the /health
	// endpoints. Empty disables the support listener.
	SupportListener string

	// Default status of the responses, when a request has neither a
	// forwarded URL nor a default backend. Defaults to 404.
	DefaultHTTPStatus int

	// Backend receiving the requests without a valid X-CF-Forwarded-Url
	// header. When empty, the route is a shunt route.
	DefaultBackend string

	// Filter chain of the route, in order.
	RouteFilters []*routing.FilterDef

	// CustomFilters are registered in addition to the built-in
	// flowId and cfForwardedUrl filters, and can be referenced by
	// RouteFilters.
	CustomFilters []filters.Spec

	// FlowIdGenerator selects the generator of the flowId filter:
	// standard or ulid.
	FlowIdGenerator string

	// Flags controlling the proxy behavior.
	ProxyFlags proxy.Flags

	// Period of waiting, after a SIGTERM or SIGINT, while /health reports
	// 503, before shutting down the listeners.
	WaitForHealthcheckInterval time.Duration

	// Application log file. When empty, stderr is used.
	ApplicationLogOutput string

	// Prefix of the application log entries.
	ApplicationLogPrefix string

	// Minimum level of the application log.
	ApplicationLogLevel log.Level

	// Enables the JSON format of the application log.
	ApplicationLogJSONEnabled bool

	// Access log file. When empty, stderr is used.
	AccessLogOutput string

	// Disables the access log.
	AccessLogDisabled bool

	// Enables the JSON format of the access log.
	AccessLogJSONEnabled bool

	// Flavour of the metrics: codahale, prometheus or both.
	MetricsFlavour metrics.Kind

	// Prefix of the metric keys.
	MetricsPrefix string

	EnableDebugGcMetrics                bool
	EnableRuntimeMetrics                bool
	EnableServeRouteMetrics             bool
	EnableServeHostMetrics              bool
	EnableServeMethodMetric             bool
	EnableServeStatusCodeMetric         bool
	EnableBackendHostMetrics            bool
	EnableAllFiltersMetrics             bool
	EnableCombinedResponseMetrics       bool
	EnableRouteResponseMetrics          bool
	EnableRouteBackendErrorsCounters    bool
	EnableRouteStreamingErrorsCounters  bool
	EnableRouteBackendMetrics           bool
	MetricsUseExpDecaySample            bool
	DisableMetricsCompatibilityDefaults bool
	HistogramMetricBuckets              []float64

	// Tracer implementation and its arguments, e.g. noop or basic.
	OpenTracing []string

	// Name of the initial span of each request.
	OpenTracingInitialSpan string

	// Tags excluded from the proxy spans.
	OpenTracingExcludedProxyTags []string

	// Enables the filter start and end span events.
	OpenTracingLogFilterLifecycleEvents bool

	// Enables the response streaming span events.
	OpenTracingLogStreamEvents bool

	IdleConnectionsPerHost       int
	CloseIdleConnsPeriod         time.Duration
	ReadTimeoutServer            time.Duration
	ReadHeaderTimeoutServer      time.Duration
	WriteTimeoutServer           time.Duration
	IdleTimeoutServer            time.Duration
	MaxHeaderBytes               int
	TimeoutBackend               time.Duration
	KeepAliveBackend             time.Duration
	ResponseHeaderTimeoutBackend time.Duration
	ExpectContinueTimeoutBackend time.Duration
	TLSHandshakeTimeoutBackend   time.Duration
	MaxIdleConnsBackend          int

	// used in tests to trigger the shutdown without a signal
	testShutdownSignal chan struct{}
}

// Server runs the route service proxy and the support endpoints.
type Server struct {
	options  Options
	route    *routing.Route
	proxy    *proxy.Proxy
	metrics  metrics.Metrics
	tracer   ot.Tracer
	server   *http.Server
	support  *http.Server
	shutdown atomic.Bool
	wg       sync.WaitGroup
	closers  []io.Closer
}

func (o *Options) metricsOptions() metrics.Options {
	return metrics.Options{
		Format:                             o.MetricsFlavour,
		Prefix:                             o.MetricsPrefix,
		EnableDebugGcMetrics:               o.EnableDebugGcMetrics,
		EnableRuntimeMetrics:               o.EnableRuntimeMetrics,
		EnableServeRouteMetrics:            o.EnableServeRouteMetrics,
		EnableServeHostMetrics:             o.EnableServeHostMetrics,
		EnableServeMethodMetric:            o.EnableServeMethodMetric,
		EnableServeStatusCodeMetric:        o.EnableServeStatusCodeMetric,
		EnableBackendHostMetrics:           o.EnableBackendHostMetrics,
		EnableAllFiltersMetrics:            o.EnableAllFiltersMetrics,
		EnableCombinedResponseMetrics:      o.EnableCombinedResponseMetrics,
		EnableRouteResponseMetrics:         o.EnableRouteResponseMetrics,
		EnableRouteBackendErrorsCounters:   o.EnableRouteBackendErrorsCounters,
		EnableRouteStreamingErrorsCounters: o.EnableRouteStreamingErrorsCounters,
		EnableRouteBackendMetrics:          o.EnableRouteBackendMetrics,
		UseExpDecaySample:                  o.MetricsUseExpDecaySample,
		HistogramBuckets:                   o.HistogramMetricBuckets,
		DisableCompatibilityDefaults:       o.DisableMetricsCompatibilityDefaults,
	}
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	return f, nil
}

func (s *Server) initLog(o Options) error {
	lo := logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogLevel:       o.ApplicationLogLevel,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	}

	if o.ApplicationLogOutput != "" {
		f, err := openLogFile(o.ApplicationLogOutput)
		if err != nil {
			return err
		}

		s.closers = append(s.closers, f)
		lo.ApplicationLogOutput = f
	}

	if o.AccessLogOutput != "" {
		f, err := openLogFile(o.AccessLogOutput)
		if err != nil {
			return err
		}

		s.closers = append(s.closers, f)
		lo.AccessLogOutput = f
	}

	logging.Init(lo)
	return nil
}

func (o *Options) filterRegistry() (filters.Registry, error) {
	gen, err := flowid.NewGenerator(o.FlowIdGenerator)
	if err != nil {
		return nil, fmt.Errorf("invalid flow id generator %q: %w", o.FlowIdGenerator, err)
	}

	r := make(filters.Registry)
	r.Register(flowid.NewWithGenerator(gen))
	r.Register(cfroute.NewForwardedURL(logging.New(map[string]interface{}{"filter": filters.CfForwardedUrlName})))
	for _, s := range o.CustomFilters {
		r.Register(s)
	}

	return r, nil
}

func (o *Options) tracer() (ot.Tracer, error) {
	opts := o.OpenTracing
	if len(opts) == 0 {
		opts = []string{"noop"}
	}

	return tracing.InitTracer(opts)
}

// New creates the route service from the options, without starting the
// listeners. It initializes the application and access logs.
func New(o Options) (*Server, error) {
	s := &Server{options: o}
	if err := s.initLog(o); err != nil {
		s.closeFiles()
		return nil, err
	}

	tracer, err := o.tracer()
	if err != nil {
		s.closeFiles()
		return nil, err
	}

	s.tracer = tracer
	registry, err := o.filterRegistry()
	if err != nil {
		s.closeTracer()
		s.closeFiles()
		return nil, err
	}

	rt, err := routing.New(routing.Options{
		Backend:        o.DefaultBackend,
		Filters:        o.RouteFilters,
		FilterRegistry: registry,
	})
	if err != nil {
		s.closeTracer()
		s.closeFiles()
		return nil, err
	}

	log.Infof("route %s: %s -> %s", rt.Id, routing.FiltersString(o.RouteFilters), backendString(rt))

	s.route = rt
	s.metrics = metrics.NewMetrics(o.metricsOptions())
	s.proxy = proxy.WithParams(proxy.Params{
		Route:                  rt,
		Flags:                  o.ProxyFlags,
		AccessLogDisabled:      o.AccessLogDisabled,
		DefaultHTTPStatus:      o.DefaultHTTPStatus,
		IdleConnectionsPerHost: o.IdleConnectionsPerHost,
		MaxIdleConns:           o.MaxIdleConnsBackend,
		CloseIdleConnsPeriod:   o.CloseIdleConnsPeriod,
		Timeout:                o.TimeoutBackend,
		ResponseHeaderTimeout:  o.ResponseHeaderTimeoutBackend,
		ExpectContinueTimeout:  o.ExpectContinueTimeoutBackend,
		KeepAlive:              o.KeepAliveBackend,
		TLSHandshakeTimeout:    o.TLSHandshakeTimeoutBackend,
		Metrics:                s.metrics,
		OpenTracing: &proxy.OpenTracingParams{
			Tracer:          tracer,
			InitialSpan:     o.OpenTracingInitialSpan,
			LogFilterEvents: o.OpenTracingLogFilterLifecycleEvents,
			LogStreamEvents: o.OpenTracingLogStreamEvents,
			ExcludeTags:     o.OpenTracingExcludedProxyTags,
		},
	})

	s.server = &http.Server{
		Addr:              o.Address,
		Handler:           s.proxy,
		ReadTimeout:       o.ReadTimeoutServer,
		ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
		WriteTimeout:      o.WriteTimeoutServer,
		IdleTimeout:       o.IdleTimeoutServer,
		MaxHeaderBytes:    o.MaxHeaderBytes,
	}

	if o.SupportListener != "" {
		s.support = &http.Server{
			Addr:              o.SupportListener,
			Handler:           s.SupportHandler(),
			ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
		}
	}

	return s, nil
}

func backendString(rt *routing.Route) string {
	if rt.Shunt {
		return "<shunt>"
	}

	return rt.Backend
}

// ServeHTTP serves the proxied requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.proxy.ServeHTTP(w, r)
}

// SupportHandler serves the metrics under /metrics and the health state
// under /health.
func (s *Server) SupportHandler() http.Handler {
	mux := http.NewServeMux()
	s.metrics.RegisterHandler("/metrics", mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if s.shutdown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func (s *Server) closeFiles() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Errorf("failed to close log file: %v", err)
		}
	}
}

// the basic tracer flushes its spans from a goroutine, stopped by Close
func (s *Server) closeTracer() {
	if c, ok := s.tracer.(interface{ Close() }); ok {
		c.Close()
	}
}

// Close releases the proxy, the route, the metrics and the tracer,
// without waiting for the listeners.
func (s *Server) Close() error {
	err := s.proxy.Close()
	s.route.Close()
	s.metrics.Close()
	s.closeTracer()
	s.closeFiles()
	return err
}

func newShutdownFunc(s *Server) func(delay time.Duration) {
	once := &sync.Once{}
	s.wg.Add(1)

	return func(delay time.Duration) {
		once.Do(func() {
			defer s.wg.Done()

			s.shutdown.Store(true)
			log.Infof("shutting down the server in %s...", delay)
			time.Sleep(delay)

			ctx := context.Background()
			if err := s.server.Shutdown(ctx); err != nil {
				log.Error("unable to shut down the server: ", err)
			}

			if s.support != nil {
				if err := s.support.Shutdown(ctx); err != nil {
					log.Error("unable to shut down the support listener: ", err)
				}
			}

			log.Info("server shut down")
		})
	}
}

func listenAndServe(name string, srv *http.Server, l net.Listener) error {
	log.Infof("%s listener on %v", name, l.Addr())
	if err := srv.Serve(l); err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) run(sigs <-chan os.Signal) error {
	shutdown := newShutdownFunc(s)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
		case <-s.options.testShutdownSignal:
		case <-done:
			return
		}

		shutdown(s.options.WaitForHealthcheckInterval)
	}()

	var supportListener net.Listener
	if s.support != nil {
		l, err := net.Listen("tcp", s.support.Addr)
		if err != nil {
			go shutdown(0)
			s.wg.Wait()
			return fmt.Errorf("failed to start the support listener: %w", err)
		}

		supportListener = l
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := listenAndServe("support", s.support, supportListener); err != nil {
				log.Errorf("support listener failed: %v", err)
				go shutdown(0)
			}
		}()
	}

	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		go shutdown(0)
		s.wg.Wait()
		return fmt.Errorf("failed to start the proxy listener: %w", err)
	}

	err = listenAndServe("proxy", s.server, l)
	if err != nil {
		go shutdown(0)
	}

	s.wg.Wait()
	return err
}

// Run starts the route service set up according to the passed options.
// It blocks until the server is shut down, either after a SIGTERM or
// SIGINT, or due to a listener error, which is returned.
func Run(o Options) error {
	s, err := New(o)
	if err != nil {
		return err
	}

	defer s.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigs)

	return s.run(sigs)
}
