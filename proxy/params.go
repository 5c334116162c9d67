package proxy

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/cfexamples/routeservice/logging"
	"github.com/cfexamples/routeservice/metrics"
	"github.com/cfexamples/routeservice/routing"
)

const (
	// The default value set for http.Transport.MaxIdleConnsPerHost.
	DefaultIdleConnsPerHost = 64

	// The default period at which the idle connections are forcibly
	// closed.
	DefaultCloseIdleConnsPeriod = 20 * time.Second

	// DefaultResponseHeaderTimeout, the default response header timeout
	DefaultResponseHeaderTimeout = 60 * time.Second

	// DefaultExpectContinueTimeout, the default timeout to expect
	// a response for a 100 Continue request
	DefaultExpectContinueTimeout = 30 * time.Second
)

// Flags control the behavior of the proxy.
type Flags uint

const (
	FlagsNone Flags = 0

	// Insecure causes the proxy to ignore the verification of
	// the TLS certificates of the backend services.
	Insecure Flags = 1 << iota

	// PreserveHost indicates whether the outgoing request to the
	// backend should use by default the 'Host' header of the incoming
	// request, or the host part of the destination, in case filters
	// don't change it.
	PreserveHost

	// HopHeadersRemoval indicates whether the Hop Headers should be removed
	// in compliance with RFC 2616
	HopHeadersRemoval
)

// When set, the proxy will skip the TLS verification on outgoing requests.
func (f Flags) Insecure() bool { return f&Insecure != 0 }

// When set, the proxy will set the, by default, the Host header value
// of the outgoing requests to the one of the incoming request.
func (f Flags) PreserveHost() bool { return f&PreserveHost != 0 }

// When set, the proxy will remove the Hop Headers
func (f Flags) HopHeadersRemoval() bool { return f&HopHeadersRemoval != 0 }

// Proxy initialization options.
type Params struct {
	// The route that every incoming request is served by. Defaults to
	// a shunt route.
	Route *routing.Route

	// Control flags. See the Flags values.
	Flags Flags

	// When set, no access log is printed.
	AccessLogDisabled bool

	// DefaultHTTPStatus is the HTTP status used when neither the
	// route nor any of its filters provide a destination for a
	// request. Defaults to 404.
	DefaultHTTPStatus int

	// Same as net/http.Transport.MaxIdleConnsPerHost, but the default
	// is 64. The route service forwards to whatever host the
	// X-CF-Forwarded-Url header names, so for platforms with many
	// applications behind the same route service, a lower value may
	// be preferable.
	IdleConnectionsPerHost int

	// MaxIdleConns limits the number of idle connections to all backends, 0 means no limit
	MaxIdleConns int

	// Defines the time period of how often the idle connections are
	// forcibly closed. The default is 20 seconds. When set to less than
	// 0, the proxy doesn't force closing the idle connections.
	CloseIdleConnsPeriod time.Duration

	// Timeout sets the TCP client connection timeout for proxy http connections to the backend
	Timeout time.Duration

	// ResponseHeaderTimeout sets the HTTP response timeout for
	// proxy http connections to the backend.
	ResponseHeaderTimeout time.Duration

	// ExpectContinueTimeout sets the HTTP timeout to expect a
	// response for status Code 100 for proxy http connections to
	// the backend.
	ExpectContinueTimeout time.Duration

	// KeepAlive sets the TCP keepalive for proxy http connections to the backend
	KeepAlive time.Duration

	// TLSHandshakeTimeout sets the TLS handshake timeout for proxy connections to the backend
	TLSHandshakeTimeout time.Duration

	// Client TLS to connect to Backends
	ClientTLS *tls.Config

	// Metrics collects the proxy and the filter metrics. Defaults to
	// a void implementation.
	Metrics metrics.Metrics

	// Log is used for the application log entries of the proxy.
	// Defaults to the logrus standard logger.
	Log logging.Logger

	// OpenTracing contains parameters related to OpenTracing instrumentation. For default values
	// check OpenTracingParams
	OpenTracing *OpenTracingParams
}

func validStatus(code int) bool {
	return code >= http.StatusContinue && code <= http.StatusNetworkAuthenticationRequired
}

func (p Params) withDefaults() Params {
	if p.IdleConnectionsPerHost <= 0 {
		p.IdleConnectionsPerHost = DefaultIdleConnsPerHost
	}

	if p.CloseIdleConnsPeriod == 0 {
		p.CloseIdleConnsPeriod = DefaultCloseIdleConnsPeriod
	}

	if p.ResponseHeaderTimeout == 0 {
		p.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}

	if p.ExpectContinueTimeout == 0 {
		p.ExpectContinueTimeout = DefaultExpectContinueTimeout
	}

	if !validStatus(p.DefaultHTTPStatus) {
		p.DefaultHTTPStatus = http.StatusNotFound
	}

	if p.Route == nil {
		p.Route = &routing.Route{Id: routing.DefaultRouteId, Shunt: true}
	}

	if p.Metrics == nil {
		p.Metrics = metrics.NewVoid()
	}

	if p.Log == nil {
		p.Log = &logging.DefaultLog{}
	}

	return p
}
