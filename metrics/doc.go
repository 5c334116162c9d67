/*
Package metrics implements collection of common performance metrics of the
route service.

Two backends are provided: Prometheus, on the client_golang library, and
CodaHale, on the Go port of the Coda Hale metrics library. The All backend
writes to both of them.

The collected metrics include the time spent with processing all filters
and every single filter, the time waiting for the response from the
backend, the time spent with forwarding the response to the client, the
requests without a destination, and the custom counters of the filters.
The forwarding filter counts its decisions with the keys
filter.cfForwardedUrl.forwarded, filter.cfForwardedUrl.passthrough and
filter.cfForwardedUrl.malformed.

The metrics are exposed on the support listener, under /metrics.
*/
package metrics
