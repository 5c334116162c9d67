/*
Package filters contains definitions for filters, and the registry
that maps filter names to their specifications.

Filters are used to augment both the inbound request's attributes before
forwarding it to the destination, and the outbound response's attributes
before returning it to the client. A route carries an ordered chain of
filters. The request phase runs the chain in order, the response phase
in reverse order.

Filter instances are created by filter specifications (Spec), that are
registered by name in a Registry. When a route is constructed, each
filter definition of the chain is resolved by its name, and the filter
is created with the arguments of the definition.

The routing context (FilterContext) exposes the request, the response,
the routing destination, and the metrics and tracing facilities of the
proxy. A filter changes the destination of a request by calling
SetDestination, which is how the route service forwarding filter hands
the X-CF-Forwarded-Url target to the proxy.

Filters can serve a request themselves by calling Serve. In this case the
rest of the request filters are skipped, and the request is not forwarded.
*/
package filters
