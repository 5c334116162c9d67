package proxy

import (
	stdlibcontext "context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cfexamples/routeservice/tracing"
)

const dialEvent = "dial_context"

type proxyDialer struct {
	dial func(ctx stdlibcontext.Context, network, addr string) (net.Conn, error)
}

// DialContext marks the dial errors, so that they can be told apart from
// the errors after the connection was made. A connection made after the
// request context was done is closed and reported as a timeout.
func (d *proxyDialer) DialContext(ctx stdlibcontext.Context, network, addr string) (net.Conn, error) {
	tracing.LogKV(dialEvent, StartEvent, ctx)
	conn, err := d.dial(ctx, network, addr)
	tracing.LogKV(dialEvent, EndEvent, ctx)

	if err != nil {
		return nil, &proxyError{err: err, dialingFailed: true}
	}

	if cerr := ctx.Err(); cerr != nil {
		conn.Close()
		return nil, &proxyError{
			err:  fmt.Errorf("err from dial context: %w", cerr),
			code: http.StatusGatewayTimeout,
		}
	}

	return conn, nil
}

// newTransport expects params with the defaults applied.
func newTransport(p Params) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   p.Timeout,
		KeepAlive: p.KeepAlive,
	}

	tr := &http.Transport{
		DialContext:           (&proxyDialer{dial: dialer.DialContext}).DialContext,
		TLSHandshakeTimeout:   p.TLSHandshakeTimeout,
		ResponseHeaderTimeout: p.ResponseHeaderTimeout,
		ExpectContinueTimeout: p.ExpectContinueTimeout,
		MaxIdleConns:          p.MaxIdleConns,
		MaxIdleConnsPerHost:   p.IdleConnectionsPerHost,
		IdleConnTimeout:       p.CloseIdleConnsPeriod,
		Proxy:                 http.ProxyFromEnvironment,
	}

	if p.ClientTLS != nil {
		tr.TLSClientConfig = p.ClientTLS.Clone()
	}

	if p.Flags.Insecure() {
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = &tls.Config{}
		}

		/* #nosec */
		tr.TLSClientConfig.InsecureSkipVerify = true
	}

	return tr
}

// closeIdleConns closes the idle connections of tr every period, until
// quit is closed.
func closeIdleConns(tr *http.Transport, period time.Duration, quit <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tr.CloseIdleConnections()
		case <-quit:
			return
		}
	}
}
