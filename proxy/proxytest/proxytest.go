// Package proxytest starts a route service proxy on a test server.
package proxytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/cfexamples/routeservice/filters"
	"github.com/cfexamples/routeservice/logging/loggingtest"
	"github.com/cfexamples/routeservice/proxy"
	"github.com/cfexamples/routeservice/routing"
)

type TestProxy struct {
	URL   string
	Log   *loggingtest.TestLogger
	Route *routing.Route

	proxy  *proxy.Proxy
	server *httptest.Server
}

type TestClient struct {
	*http.Client
}

type Config struct {
	RouteOptions routing.Options
	ProxyParams  proxy.Params
}

// WithParams starts a proxy serving a route built from the backend and
// the filter definitions, with the filters resolved in fr.
func WithParams(fr filters.Registry, proxyParams proxy.Params, backend string, defs ...*routing.FilterDef) (*TestProxy, error) {
	return Config{
		RouteOptions: routing.Options{
			Backend:        backend,
			Filters:        defs,
			FilterRegistry: fr,
		},
		ProxyParams: proxyParams,
	}.Create()
}

// New starts a proxy without closing the idle connections periodically.
func New(fr filters.Registry, backend string, defs ...*routing.FilterDef) (*TestProxy, error) {
	return WithParams(fr, proxy.Params{CloseIdleConnsPeriod: -time.Second}, backend, defs...)
}

func (c Config) Create() (*TestProxy, error) {
	rt, err := routing.New(c.RouteOptions)
	if err != nil {
		return nil, err
	}

	tl, ok := c.ProxyParams.Log.(*loggingtest.TestLogger)
	if !ok {
		tl = loggingtest.New()
	}

	if c.ProxyParams.Log == nil {
		c.ProxyParams.Log = tl
	}

	c.ProxyParams.Route = rt

	pr := proxy.WithParams(c.ProxyParams)
	tsp := httptest.NewServer(pr)

	return &TestProxy{
		URL:    tsp.URL,
		Log:    tl,
		Route:  rt,
		proxy:  pr,
		server: tsp,
	}, nil
}

func (p *TestProxy) Client() *TestClient {
	return &TestClient{p.server.Client()}
}

func (p *TestProxy) Close() error {
	p.server.Close()
	p.Route.Close()
	err := p.proxy.Close()
	p.Log.Close()
	return err
}

// GetBody issues a GET to the specified URL, reads and closes response body and
// returns response, response body bytes and error if any.
func (c *TestClient) GetBody(url string) (rsp *http.Response, body []byte, err error) {
	rsp, err = c.Get(url)
	if err != nil {
		return
	}
	defer rsp.Body.Close()

	body, err = io.ReadAll(rsp.Body)
	return
}

// GetBodyWithHeader is like GetBody, with additional request headers.
func (c *TestClient) GetBodyWithHeader(url string, h http.Header) (rsp *http.Response, body []byte, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}

	for k, v := range h {
		req.Header[k] = v
	}

	rsp, err = c.Do(req)
	if err != nil {
		return
	}
	defer rsp.Body.Close()

	body, err = io.ReadAll(rsp.Body)
	return
}
