package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusClientClosedRequest is sent, or rather recorded, when the
// client went away before the response was ready.
const StatusClientClosedRequest = 499

var errDestinationMissing = &proxyError{err: errors.New("no destination")}

// proxyError carries the status of the error response sent for a failed
// request.
type proxyError struct {
	err           error
	code          int
	dialingFailed bool
}

// status returns 502 for the dial errors, and 500 when no code was set.
func (e *proxyError) status() int {
	switch {
	case e.dialingFailed:
		return http.StatusBadGateway
	case e.code == 0:
		return http.StatusInternalServerError
	default:
		return e.code
	}
}

func (e *proxyError) Error() string {
	switch {
	case e.err == nil:
		return fmt.Sprintf("proxy error: %d", e.status())
	case e.dialingFailed:
		return "dialing failed: " + e.err.Error()
	default:
		return e.err.Error()
	}
}

func (e *proxyError) Unwrap() error {
	return e.err
}

// roundTripError classifies the errors of the backend roundtrip.
func roundTripError(req *http.Request, err error) *proxyError {
	var perr *proxyError
	if errors.As(err, &perr) {
		return perr
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		code := http.StatusServiceUnavailable
		if nerr.Timeout() {
			code = http.StatusGatewayTimeout
		}

		return &proxyError{err: err, code: code}
	}

	if cerr := req.Context().Err(); cerr != nil {
		return &proxyError{err: cerr, code: StatusClientClosedRequest}
	}

	return &proxyError{err: err}
}

// errorStatus returns the status of the error response for err.
func errorStatus(err error) int {
	var perr *proxyError
	if errors.As(err, &perr) {
		return perr.status()
	}

	return http.StatusInternalServerError
}
