/*
Package flowid implements a filter used for identifying incoming requests through their complete lifecycle for
logging and monitoring.

Flow Ids let you correlate the route service access logs for a given request against the logs of the application
the request is forwarded to, and against the Cloud Foundry router logs.

# How It Works

The filter sets a Flow Id for every HTTP request that it receives, in the X-Flow-Id header of the request forwarded
to the destination. The id is tagged on the request span as flow_id, and written to the access log.

The filter takes 2 optional parameters:
 1. Accept existing X-Flow-Id header
 2. Flow Id length

The first parameter is a string parameter that, when set to "reuse", will make the filter skip the generation of
a new flow id. If the existing header value is not a valid flow id it is ignored and a new flow id is also generated.
Any other string used for this parameter is ignored and has the same meaning: not to accept existing X-Flow-Id
headers.

The second parameter is a number that defines the length of the generated flow ids, between 8 and 64. When set,
the standard generator is used regardless of the generator of the service.

# Usage

Default parameters

	flowId()

Reuse existing flow id

	flowId("reuse")

Generate bigger flow ids

	flowId("reuse", 64)

# Generators

The standard generator builds the flow ids from a static alphabet of 64 characters. The ULID generator creates
Universally Unique Lexicographically Sortable Identifiers. The generator of the service is selected with the
-flowid-generator flag.
*/
package flowid
