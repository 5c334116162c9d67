/*
Package routing builds the single route of the route service: the default
backend, and the explicit, ordered chain of filters applied to every
request.

The chain is defined either in the flag form:

	flowId("reuse") -> cfForwardedUrl()

or as a list of filter definitions in the yaml configuration:

	route-filters:
	- name: flowId
	  args: [reuse]
	- name: cfForwardedUrl

Each filter name is resolved in the filter registry, and the filter is
created with the arguments of its definition. An unknown filter name or
invalid arguments fail the construction of the route.

A route without a backend is a shunt route: requests are answered only by
the filters, or by the destination set by a filter, and otherwise with the
default status of the proxy.
*/
package routing
