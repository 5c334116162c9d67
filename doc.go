/*
Package routeservice provides a Cloud Foundry route service: an HTTP
proxy that receives the requests rerouted by the platform router, and
forwards them to the address found in the X-CF-Forwarded-Url header.

The route service runs a single route, made of an ordered filter chain
and an optional default backend. The filters can inspect and augment the
requests and the responses, and they can change the destination of the
request. The default chain is:

	flowId("reuse") -> cfForwardedUrl()

The flowId filter makes sure every request carries an X-Flow-Id header,
and the cfForwardedUrl filter sets the destination from the
X-CF-Forwarded-Url header, when it holds an absolute http or https URL.
When the header is missing or malformed, the request goes to the default
backend, or, when there is none, it is answered with the default status,
404 unless configured otherwise.

# Quickstart

Build and start the route service with a default backend:

	go build ./cmd/routeservice
	./routeservice -address :8080 -default-backend https://fallback.example.org

Then send a request as the platform router would:

	curl -H 'X-CF-Forwarded-Url: https://app.example.org/path' localhost:8080

# Configuration

The command line flags can be set as well in a yaml file, passed with
-config-file. The flags on the command line take precedence. The yaml
file accepts the filter chain as a list, too:

	route-filters:
	  - name: flowId
	    args: [reuse]
	  - name: cfForwardedUrl

# Support endpoints

The support listener, by default on :9911, serves the metrics on
/metrics, in the codahale or the prometheus format, and the health state
on /health. After receiving SIGTERM or SIGINT, /health reports 503 for
the wait-for-healthcheck-interval, while the proxy keeps serving, and
only then the listeners are shut down.

# Extending the route service

Custom filters can be registered with Options.CustomFilters, and
referenced by name in Options.RouteFilters. A filter implements the
filters.Spec and the filters.Filter interfaces:

	type customSpec struct{}

	func (s *customSpec) Name() string { return "customFilter" }

	func (s *customSpec) CreateFilter(args []interface{}) (filters.Filter, error) {
		return &customFilter{}, nil
	}

	type customFilter struct{}

	func (f *customFilter) Request(ctx filters.FilterContext) {
		ctx.Request().Header.Set("X-Custom", "value")
	}

	func (f *customFilter) Response(ctx filters.FilterContext) {}

	func main() {
		log.Fatal(routeservice.Run(routeservice.Options{
			Address:       ":8080",
			CustomFilters: []filters.Spec{&customSpec{}},
			RouteFilters: []*routing.FilterDef{
				{Name: "flowId", Args: []interface{}{"reuse"}},
				{Name: "customFilter"},
				{Name: "cfForwardedUrl"},
			},
		}))
	}
*/
package routeservice
