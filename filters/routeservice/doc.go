/*
Package routeservice implements the Cloud Foundry route service filter.

When an application route is bound to a route service, the router sends the
requests of the application to the route service, and puts the original
target of the request in the X-CF-Forwarded-Url header. The route service
is expected to process the request, and to forward it to that URL.

The cfForwardedUrl filter reads the header in the request phase, and when
it contains an absolute http or https URL, it sets the URL as the
destination of the request, and its host as the outgoing Host header. The
proxy then sends the request to the forwarded URL instead of the backend of
the route. When the header is missing, or its value is not an absolute
http(s) URL, the request is forwarded to the backend of the route,
unchanged. A malformed value never fails the request.

Example route filter chain:

	flowId("reuse") -> cfForwardedUrl()

Every decision is logged, counted with the custom counters
filter.cfForwardedUrl.forwarded, filter.cfForwardedUrl.passthrough and
filter.cfForwardedUrl.malformed, and logged to the request span.
*/
package routeservice
