package config

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/cfexamples/routeservice"
	"github.com/cfexamples/routeservice/filters/flowid"
	"github.com/cfexamples/routeservice/metrics"
	"github.com/cfexamples/routeservice/proxy"
	"github.com/cfexamples/routeservice/routing"
)

// DefaultFilters is the filter chain of the route, when not configured
// otherwise.
const DefaultFilters = `flowId("reuse") -> cfForwardedUrl()`

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address           string `yaml:"address"`
	SupportListener   string `yaml:"support-listener"`
	PrintVersion      bool   `yaml:"version"`
	DefaultHTTPStatus int    `yaml:"default-http-status"`

	// route:
	DefaultBackend  string               `yaml:"default-backend"`
	Filters         *filtersFlag         `yaml:"filters"`
	RouteFilters    []*routing.FilterDef `yaml:"route-filters"`
	FlowIdGenerator string               `yaml:"flowid-generator"`

	// proxy:
	Insecure          bool `yaml:"insecure"`
	ProxyPreserveHost bool `yaml:"proxy-preserve-host"`
	RemoveHopHeaders  bool `yaml:"remove-hop-headers"`

	// logging:
	ApplicationLogLevel       log.Level `yaml:"-"`
	ApplicationLogLevelString string    `yaml:"application-log-level"`
	ApplicationLog            string    `yaml:"application-log"`
	ApplicationLogPrefix      string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled bool      `yaml:"application-log-json-enabled"`
	AccessLog                 string    `yaml:"access-log"`
	AccessLogDisabled         bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled      bool      `yaml:"access-log-json-enabled"`

	// metrics:
	MetricsFlavour               *listFlag `yaml:"metrics-flavour"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	EnableDebugGcMetrics         bool      `yaml:"debug-gc-metrics"`
	RuntimeMetrics               bool      `yaml:"runtime-metrics"`
	ServeRouteMetrics            bool      `yaml:"serve-route-metrics"`
	ServeHostMetrics             bool      `yaml:"serve-host-metrics"`
	ServeMethodMetric            bool      `yaml:"serve-method-metric"`
	ServeStatusCodeMetric        bool      `yaml:"serve-status-code-metric"`
	BackendHostMetrics           bool      `yaml:"backend-host-metrics"`
	AllFiltersMetrics            bool      `yaml:"all-filters-metrics"`
	CombinedResponseMetrics      bool      `yaml:"combined-response-metrics"`
	RouteResponseMetrics         bool      `yaml:"route-response-metrics"`
	RouteBackendErrorCounters    bool      `yaml:"route-backend-error-counters"`
	RouteStreamErrorCounters     bool      `yaml:"route-stream-error-counters"`
	RouteBackendMetrics          bool      `yaml:"route-backend-metrics"`
	MetricsUseExpDecaySample     bool      `yaml:"metrics-exp-decay-sample"`
	DisableMetricsCompat         bool      `yaml:"disable-metrics-compat"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`

	// tracing:
	OpenTracing                         string    `yaml:"opentracing"`
	OpenTracingInitialSpan              string    `yaml:"opentracing-initial-span"`
	OpenTracingExcludedProxyTags        *listFlag `yaml:"opentracing-excluded-proxy-tags"`
	OpentracingLogFilterLifecycleEvents bool      `yaml:"opentracing-log-filter-lifecycle-events"`
	OpentracingLogStreamEvents          bool      `yaml:"opentracing-log-stream-events"`

	// connections, timeouts:
	WaitForHealthcheckInterval   time.Duration `yaml:"wait-for-healthcheck-interval"`
	IdleConnsPerHost             int           `yaml:"idle-conns-num"`
	CloseIdleConnsPeriod         time.Duration `yaml:"close-idle-conns-period"`
	ReadTimeoutServer            time.Duration `yaml:"read-timeout-server"`
	ReadHeaderTimeoutServer      time.Duration `yaml:"read-header-timeout-server"`
	WriteTimeoutServer           time.Duration `yaml:"write-timeout-server"`
	IdleTimeoutServer            time.Duration `yaml:"idle-timeout-server"`
	MaxHeaderBytes               int           `yaml:"max-header-bytes"`
	TimeoutBackend               time.Duration `yaml:"timeout-backend"`
	KeepaliveBackend             time.Duration `yaml:"keepalive-backend"`
	ResponseHeaderTimeoutBackend time.Duration `yaml:"response-header-timeout-backend"`
	ExpectContinueTimeoutBackend time.Duration `yaml:"expect-continue-timeout-backend"`
	TLSHandshakeTimeoutBackend   time.Duration `yaml:"tls-timeout-backend"`
	MaxIdleConnsBackend          int           `yaml:"max-idle-connection-backend"`
}

const (
	defaultApplicationLogPrefix = "[APP]"
	defaultApplicationLogLevel  = "INFO"
	defaultMetricsPrefix        = "routeservice."
	defaultHistogramBuckets     = ""
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.Filters = newFiltersFlag(DefaultFilters)
	cfg.MetricsFlavour = commaListFlag("codahale", "prometheus")
	cfg.OpenTracingExcludedProxyTags = commaListFlag()

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":8080", "network address that the route service should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", ":9911", "network address used for exposing the /metrics and the /health endpoints. An empty value disables support endpoint.")
	flag.BoolVar(&cfg.PrintVersion, "version", false, "print the route service version")
	flag.IntVar(&cfg.DefaultHTTPStatus, "default-http-status", http.StatusNotFound, "default HTTP status used when a request has neither a forwarded URL nor a default backend")

	// route:
	flag.StringVar(&cfg.DefaultBackend, "default-backend", "", "backend address used for the requests without a valid X-CF-Forwarded-Url header. When empty, these requests are answered with the default-http-status")
	flag.Var(cfg.Filters, "filters", "ordered filter chain of the route in the arrow notation, e.g. "+DefaultFilters)
	flag.StringVar(&cfg.FlowIdGenerator, "flowid-generator", "standard", "generator of the flow ids: standard or ulid")

	// proxy:
	flag.BoolVar(&cfg.Insecure, "insecure", false, "flag indicating to ignore the verification of the TLS certificates of the backend services")
	flag.BoolVar(&cfg.ProxyPreserveHost, "proxy-preserve-host", false, "flag indicating to preserve the incoming request 'Host' header in the outgoing requests, unless a filter sets it")
	flag.BoolVar(&cfg.RemoveHopHeaders, "remove-hop-headers", false, "enables removal of Hop-Headers according to RFC-2616")

	// logging:
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLogLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", defaultApplicationLogPrefix, "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.AccessLog, "access-log", "", "output file for the access log, When not set, /dev/stderr is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")

	// metrics:
	flag.Var(cfg.MetricsFlavour, "metrics-flavour", "Metrics flavour is used to change the exposed metrics format. Supported metric formats: 'codahale' and 'prometheus', you can select both of them")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", defaultMetricsPrefix, "allows setting a custom path prefix for metrics export")
	flag.BoolVar(&cfg.EnableDebugGcMetrics, "debug-gc-metrics", false, "enables reporting of the Go garbage collector statistics exported in debug.GCStats")
	flag.BoolVar(&cfg.RuntimeMetrics, "runtime-metrics", true, "enables reporting of the Go runtime statistics exported in runtime and specifically runtime.MemStats")
	flag.BoolVar(&cfg.ServeRouteMetrics, "serve-route-metrics", false, "enables reporting total serve time metrics for each route")
	flag.BoolVar(&cfg.ServeHostMetrics, "serve-host-metrics", false, "enables reporting total serve time metrics for each host")
	flag.BoolVar(&cfg.ServeMethodMetric, "serve-method-metric", true, "enables the HTTP method as a domain of the total serve time metric. It affects both route and host split metrics")
	flag.BoolVar(&cfg.ServeStatusCodeMetric, "serve-status-code-metric", true, "enables the HTTP response status code as a domain of the total serve time metric. It affects both route and host split metrics")
	flag.BoolVar(&cfg.BackendHostMetrics, "backend-host-metrics", false, "enables reporting total serve time metrics for each backend")
	flag.BoolVar(&cfg.AllFiltersMetrics, "all-filters-metrics", false, "enables reporting combined filter metrics for each route")
	flag.BoolVar(&cfg.CombinedResponseMetrics, "combined-response-metrics", false, "enables reporting combined response time metrics")
	flag.BoolVar(&cfg.RouteResponseMetrics, "route-response-metrics", false, "enables reporting response time metrics for each route")
	flag.BoolVar(&cfg.RouteBackendErrorCounters, "route-backend-error-counters", false, "enables counting backend errors for each route")
	flag.BoolVar(&cfg.RouteStreamErrorCounters, "route-stream-error-counters", false, "enables counting streaming errors for each route")
	flag.BoolVar(&cfg.RouteBackendMetrics, "route-backend-metrics", false, "enables reporting backend response time metrics for each route")
	flag.BoolVar(&cfg.MetricsUseExpDecaySample, "metrics-exp-decay-sample", false, "use exponentially-decaying sample in metrics")
	flag.BoolVar(&cfg.DisableMetricsCompat, "disable-metrics-compat", false, "disables the default true value for all-filters-metrics, route-response-metrics, route-backend-errorCounters and route-stream-error-counters")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", defaultHistogramBuckets, "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")

	// tracing:
	flag.StringVar(&cfg.OpenTracing, "opentracing", "noop", "list of arguments for opentracing (space separated), first argument is the tracer implementation: noop or basic")
	flag.StringVar(&cfg.OpenTracingInitialSpan, "opentracing-initial-span", "ingress", "set the name of the initial, pre-routing, tracing span")
	flag.Var(cfg.OpenTracingExcludedProxyTags, "opentracing-excluded-proxy-tags", "set tags that should be excluded from spans created for proxy operation. must be a comma-separated list of strings.")
	flag.BoolVar(&cfg.OpentracingLogFilterLifecycleEvents, "opentracing-log-filter-lifecycle-events", true, "enables the logs for events marking the start and end of the filter processing")
	flag.BoolVar(&cfg.OpentracingLogStreamEvents, "opentracing-log-stream-events", true, "enables the logs for events marking the times response headers & payload are streamed to the client")

	// connections, timeouts:
	flag.DurationVar(&cfg.WaitForHealthcheckInterval, "wait-for-healthcheck-interval", (10+5)*3*time.Second, "period waiting to become unhealthy in the loadbalancer pool in front of the route service before shutting down, while /health reports 503")
	flag.IntVar(&cfg.IdleConnsPerHost, "idle-conns-num", proxy.DefaultIdleConnsPerHost, "maximum idle connections per backend host")
	flag.DurationVar(&cfg.CloseIdleConnsPeriod, "close-idle-conns-period", proxy.DefaultCloseIdleConnsPeriod, "sets the time interval of closing all idle connections. Not closing when 0")
	flag.DurationVar(&cfg.ReadTimeoutServer, "read-timeout-server", 5*time.Minute, "set ReadTimeout for http server connections")
	flag.DurationVar(&cfg.ReadHeaderTimeoutServer, "read-header-timeout-server", 60*time.Second, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.WriteTimeoutServer, "write-timeout-server", 60*time.Second, "set WriteTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", 60*time.Second, "set IdleTimeout for http server connections")
	flag.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", http.DefaultMaxHeaderBytes, "set MaxHeaderBytes for http server connections")
	flag.DurationVar(&cfg.TimeoutBackend, "timeout-backend", 60*time.Second, "sets the TCP client connection timeout for backend connections")
	flag.DurationVar(&cfg.KeepaliveBackend, "keepalive-backend", 30*time.Second, "sets the keepalive for backend connections")
	flag.DurationVar(&cfg.ResponseHeaderTimeoutBackend, "response-header-timeout-backend", proxy.DefaultResponseHeaderTimeout, "sets the HTTP response header timeout for backend connections")
	flag.DurationVar(&cfg.ExpectContinueTimeoutBackend, "expect-continue-timeout-backend", proxy.DefaultExpectContinueTimeout, "sets the HTTP expect continue timeout for backend connections")
	flag.DurationVar(&cfg.TLSHandshakeTimeoutBackend, "tls-timeout-backend", 60*time.Second, "sets the TLS handshake timeout for backend connections")
	flag.IntVar(&cfg.MaxIdleConnsBackend, "max-idle-connection-backend", 0, "sets the maximum idle connections for all backend connections")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	if err != nil {
		return err
	}

	if _, err := flowid.NewGenerator(c.FlowIdGenerator); err != nil {
		return fmt.Errorf("invalid flowid-generator %q: %w", c.FlowIdGenerator, err)
	}

	if _, err := c.metricsKind(); err != nil {
		return err
	}

	if c.DefaultBackend != "" {
		if _, err := routing.New(routing.Options{Backend: c.DefaultBackend}); err != nil {
			return fmt.Errorf("invalid default-backend: %w", err)
		}
	}

	if len(c.RouteFilters) == 0 && c.Filters == nil {
		return fmt.Errorf("missing route filters")
	}

	return nil
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	c.RouteFilters = normalizeFilterDefs(c.RouteFilters)

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)

	return nil
}

// routeFilters returns the structured route-filters of the config file
// when set, or the parsed filters flag.
func (c *Config) routeFilters() []*routing.FilterDef {
	if len(c.RouteFilters) > 0 {
		return c.RouteFilters
	}

	if c.Filters == nil {
		return nil
	}

	return c.Filters.defs
}

func (c *Config) metricsKind() (metrics.Kind, error) {
	var kind metrics.Kind
	for _, f := range c.MetricsFlavour.values {
		k, err := metrics.ParseMetricsKind(f)
		if err != nil {
			return metrics.UnknownKind, err
		}

		kind |= k
	}

	if kind == metrics.UnknownKind {
		kind = metrics.CodaHaleKind
	}

	return kind, nil
}

func (c *Config) ToOptions() routeservice.Options {
	var tracingOpts []string
	if c.OpenTracing != "" {
		tracingOpts = strings.Fields(c.OpenTracing)
	}

	metricsKind, _ := c.metricsKind()

	options := routeservice.Options{
		// generic:
		Address:                    c.Address,
		SupportListener:            c.SupportListener,
		DefaultHTTPStatus:          c.DefaultHTTPStatus,
		WaitForHealthcheckInterval: c.WaitForHealthcheckInterval,

		// route:
		DefaultBackend:  c.DefaultBackend,
		RouteFilters:    c.routeFilters(),
		FlowIdGenerator: c.FlowIdGenerator,

		// logging:
		ApplicationLogOutput:      c.ApplicationLog,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogLevel:       c.ApplicationLogLevel,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogOutput:           c.AccessLog,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,

		// metrics:
		MetricsFlavour:                      metricsKind,
		MetricsPrefix:                       c.MetricsPrefix,
		EnableDebugGcMetrics:                c.EnableDebugGcMetrics,
		EnableRuntimeMetrics:                c.RuntimeMetrics,
		EnableServeRouteMetrics:             c.ServeRouteMetrics,
		EnableServeHostMetrics:              c.ServeHostMetrics,
		EnableServeMethodMetric:             c.ServeMethodMetric,
		EnableServeStatusCodeMetric:         c.ServeStatusCodeMetric,
		EnableBackendHostMetrics:            c.BackendHostMetrics,
		EnableAllFiltersMetrics:             c.AllFiltersMetrics,
		EnableCombinedResponseMetrics:       c.CombinedResponseMetrics,
		EnableRouteResponseMetrics:          c.RouteResponseMetrics,
		EnableRouteBackendErrorsCounters:    c.RouteBackendErrorCounters,
		EnableRouteStreamingErrorsCounters:  c.RouteStreamErrorCounters,
		EnableRouteBackendMetrics:           c.RouteBackendMetrics,
		MetricsUseExpDecaySample:            c.MetricsUseExpDecaySample,
		DisableMetricsCompatibilityDefaults: c.DisableMetricsCompat,
		HistogramMetricBuckets:              c.HistogramMetricBuckets,

		// tracing:
		OpenTracing:                         tracingOpts,
		OpenTracingInitialSpan:              c.OpenTracingInitialSpan,
		OpenTracingExcludedProxyTags:        c.OpenTracingExcludedProxyTags.values,
		OpenTracingLogFilterLifecycleEvents: c.OpentracingLogFilterLifecycleEvents,
		OpenTracingLogStreamEvents:          c.OpentracingLogStreamEvents,

		// connections, timeouts:
		IdleConnectionsPerHost:       c.IdleConnsPerHost,
		CloseIdleConnsPeriod:         c.CloseIdleConnsPeriod,
		ReadTimeoutServer:            c.ReadTimeoutServer,
		ReadHeaderTimeoutServer:      c.ReadHeaderTimeoutServer,
		WriteTimeoutServer:           c.WriteTimeoutServer,
		IdleTimeoutServer:            c.IdleTimeoutServer,
		MaxHeaderBytes:               c.MaxHeaderBytes,
		TimeoutBackend:               c.TimeoutBackend,
		KeepAliveBackend:             c.KeepaliveBackend,
		ResponseHeaderTimeoutBackend: c.ResponseHeaderTimeoutBackend,
		ExpectContinueTimeoutBackend: c.ExpectContinueTimeoutBackend,
		TLSHandshakeTimeoutBackend:   c.TLSHandshakeTimeoutBackend,
		MaxIdleConnsBackend:          c.MaxIdleConnsBackend,
	}

	if c.Insecure {
		options.ProxyFlags |= proxy.Insecure
	}

	if c.ProxyPreserveHost {
		options.ProxyFlags |= proxy.PreserveHost
	}

	if c.RemoveHopHeaders {
		options.ProxyFlags |= proxy.HopHeadersRemoval
	}

	// 0 disables closing the idle connections
	if options.CloseIdleConnsPeriod == 0 {
		options.CloseIdleConnsPeriod = -1
	}

	return options
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
