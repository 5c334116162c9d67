/*
Package proxy implements the HTTP reverse proxy of the route service.

Every incoming request is served by a single route: an ordered chain of
filters and an optional default backend. The proxy executes the filters,
and forwards the request to the destination they chose, or, when they
chose none, to the route backend.

# Proxy Mechanism

1. request augmentation:

The request handling method of all filters in the route is executed in
the order they are defined. The filters share a context object, that
provides the in-memory representation of the incoming request, the
outgoing response writer, the outgoing host, the destination and a state
bag. A panic in a filter is logged and the processing continues with the
next filter. When a filter serves the request with a response, the
remaining filters are skipped.

2. destination:

A filter may set the destination of the request. This is what the
cfForwardedUrl filter does, when the incoming request carries a valid
X-CF-Forwarded-Url header. In this case, the outgoing request is sent to
the complete destination URL, including its path and query. Otherwise,
the scheme and the host of the route backend are used, while the path and
the query are kept from the incoming request. When neither exists, the
proxy responds with the configured default status code (404).

3. upstream request:

The outgoing request gets a clone of the incoming headers, optionally
without the hop headers, and the host set by the filters. The span of the
request is injected in the headers. Errors of the round trip are mapped
to status codes:

	dial failure                      502
	timeout                           504
	other network error               503
	client closed the request         499
	anything else                     500

4. downstream response augmentation:

The response handling method of the filters is executed in reverse order.

5. response:

The headers of the response are copied, and the body is streamed to the
client, flushing after every read.

# Access Log

Unless disabled, the proxy logs an access log entry for every request,
with its flow id and, when a filter set the destination, the forwarded
URL.
*/
package proxy
