package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	ot "github.com/opentracing/opentracing-go"

	"github.com/cfexamples/routeservice/routing"
)

const proxyBufferSize = 8192

var hopHeaders = map[string]bool{
	"Te":                  true,
	"Connection":          true,
	"Proxy-Connection":    true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func copyHeader(to, from http.Header) {
	for k, v := range from {
		to[http.CanonicalHeaderKey(k)] = v
	}
}

// cloneHeader copies h without the canonical names in exclude.
func cloneHeader(h http.Header, exclude map[string]bool) http.Header {
	clone := make(http.Header, len(h))
	for k, v := range h {
		if k = http.CanonicalHeaderKey(k); !exclude[k] {
			clone[k] = v
		}
	}

	return clone
}

// copyStream copies the body, flushing after every write, so that
// streaming responses reach the client without buffering.
func copyStream(to flushedResponseWriter, from io.Reader, tracing *proxyTracing, span ot.Span) error {
	buf := make([]byte, proxyBufferSize)
	for {
		n, err := from.Read(buf)
		tracing.logStreamEvent(span, StreamBodyEvent, strconv.Itoa(n))

		if n > 0 {
			if _, werr := to.Write(buf[:n]); werr != nil {
				return werr
			}

			to.Flush()
		}

		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}

// outgoingURL returns the address of the outgoing request. A destination
// set by a filter is used as a whole, including its path and query,
// otherwise only the scheme and the host of the route backend replace
// the ones of the incoming request.
func outgoingURL(r *http.Request, rt *routing.Route, destination *url.URL) *url.URL {
	if destination != nil {
		return cloneURL(destination)
	}

	u := cloneURL(r.URL)
	u.Scheme = rt.Scheme
	u.Host = rt.Host
	return u
}

// mapRequest creates the outgoing request from the one augmented by the
// request filters. The credentials of the destination URL, if any, are
// sent as basic auth.
func mapRequest(r *http.Request, rt *routing.Route, destination *url.URL, host string, removeHopHeaders bool) (*http.Request, error) {
	u := outgoingURL(r, rt, destination)

	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}

	rr, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}

	var exclude map[string]bool
	if removeHopHeaders {
		exclude = hopHeaders
	}

	rr.ContentLength = r.ContentLength
	rr.Header = cloneHeader(r.Header, exclude)
	rr.Host = host

	if u.User != nil {
		password, _ := u.User.Password()
		rr.SetBasicAuth(u.User.Username(), password)
	}

	return rr, nil
}
