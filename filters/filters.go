package filters

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
)

// FilterContext object providing state and information that is unique to a request.
type FilterContext interface {
	// The response writer object belonging to the incoming request. Used by
	// filters that handle the requests themselves.
	ResponseWriter() http.ResponseWriter

	// The incoming request object. It is forwarded to the route endpoint
	// with its properties changed by the filters.
	Request() *http.Request

	// The response object. It is returned to the client with its
	// properties changed by the filters.
	Response() *http.Response

	// Serve a request with the provided response. It can be used by filters that handle the requests
	// themselves. FilterContext implementations should flag this state and prevent the filter chain
	// from continuing
	Serve(*http.Response)

	// Provides the id of the route that the request is being served by.
	RouteId() string

	// Indicates if the request has been handled by a filter.
	Served() bool

	// Provides the route backend URL, or an empty string for a shunt route.
	BackendUrl() string

	// Returns the host that will be set for the outgoing proxy request as the
	// 'Host' header.
	OutgoingHost() string

	// Allows explicitly setting the Host for the outgoing proxy request.
	SetOutgoingHost(string)

	// Returns the destination of the outgoing request when it was
	// overridden by a filter, or nil when the route backend applies.
	Destination() *url.URL

	// Overrides the destination of the outgoing request. The proxy sends
	// the request to this URL, with its path and query, in place of the
	// route backend.
	SetDestination(*url.URL)

	// State bag used to pass state between filters for the current
	// request.
	StateBag() map[string]interface{}

	// Allow filters to collect metrics other than the default metrics (Filter Request, Filter Response methods)
	Metrics() Metrics

	// Allow filters to add Tags, Baggage to the trace or set the ComponentName.
	Tracer() opentracing.Tracer

	// Allow filters to create their own spans
	ParentSpan() opentracing.Span
}

// Metrics provides possibility to use custom metrics from filter implementations. The custom metrics will
// be exposed by the common metrics endpoint of the support listener, with their key prefixed by
// 'filter.<filtername>.'. E.g: filter.cfForwardedUrl.forwarded.
type Metrics interface {
	// MeasureSince adds values to a timer with a custom key.
	MeasureSince(key string, start time.Time)

	// IncCounter increments a custom counter identified by its key.
	IncCounter(key string)

	// IncCounterBy increments a custom counter identified by its key by a certain value.
	IncCounterBy(key string, value int64)

	// IncFloatCounterBy increments a custom counter identified by its key by a certain
	// float (decimal) value. IMPORTANT: Not all Metrics implementation support float
	// counters. In that case, a call to IncFloatCounterBy is dropped.
	IncFloatCounterBy(key string, value float64)
}

// Filters are created by the Spec components, optionally using filter
// specific settings. When implementing filters, it needs to be taken into
// consideration, that filter instances are route specific and not request
// specific, so any state stored with a filter is shared between all requests
// for the same route and can cause concurrency issues.
type Filter interface {
	// The Request method is called while processing the incoming request.
	Request(FilterContext)

	// The Response method is called while processing the response to be
	// returned.
	Response(FilterContext)
}

// FilterCloser are Filters that need to cleanup resources after
// filter termination. For example Filters, that create a goroutine
// for some reason need to cleanup their goroutine or they would
// leak goroutines.
type FilterCloser interface {
	Filter
	Close() error
}

// Spec objects are specifications for filters. When initializing the routes,
// the Filter instances are created using the Spec objects found in the
// registry.
type Spec interface {
	// Name gives the name of the Spec. It is used to identify filters in a route definition.
	Name() string

	// CreateFilter creates a Filter instance. Called with the parameters in the route
	// definition while initializing a route.
	CreateFilter(config []interface{}) (Filter, error)
}

// Registry used to lookup Spec objects while initializing routes.
type Registry map[string]Spec

// ErrInvalidFilterParameters is used in case of invalid filter parameters.
var ErrInvalidFilterParameters = errors.New("invalid filter parameters")

// Register a filter specification.
func (r Registry) Register(s Spec) {
	r[s.Name()] = s
}

// All filter names
const (
	FlowIdName         = "flowId"
	CfForwardedUrlName = "cfForwardedUrl"
)
