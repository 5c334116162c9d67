package metrics

import (
	"net/http"
	"time"
)

const codaHaleMediaType = "application/codahale+json"

// All writes every measurement to both the Prometheus and the CodaHale
// backend. Its handler serves the CodaHale JSON format when requested with
// the Accept header application/codahale+json, and the Prometheus text
// format otherwise.
type All struct {
	prometheus *Prometheus
	codaHale   *CodaHale
	backends   []Metrics
	handlers   map[bool]http.Handler
}

func NewAll(o Options) *All {
	a := &All{
		prometheus: NewPrometheus(o),
		codaHale:   NewCodaHale(o),
	}

	a.backends = []Metrics{a.prometheus, a.codaHale}
	return a
}

func (a *All) each(f func(Metrics)) {
	for _, m := range a.backends {
		f(m)
	}
}

func (a *All) MeasureSince(key string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureSince(key, start) })
}

func (a *All) IncCounter(key string) {
	a.each(func(m Metrics) { m.IncCounter(key) })
}

func (a *All) IncCounterBy(key string, value int64) {
	a.each(func(m Metrics) { m.IncCounterBy(key, value) })
}

func (a *All) IncFloatCounterBy(key string, value float64) {
	a.each(func(m Metrics) { m.IncFloatCounterBy(key, value) })
}

func (a *All) UpdateGauge(key string, v float64) {
	a.each(func(m Metrics) { m.UpdateGauge(key, v) })
}

func (a *All) MeasureFilterRequest(filterName string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureFilterRequest(filterName, start) })
}

func (a *All) MeasureAllFiltersRequest(routeId string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureAllFiltersRequest(routeId, start) })
}

func (a *All) MeasureBackend(routeId string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureBackend(routeId, start) })
}

func (a *All) MeasureBackendHost(routeBackendHost string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureBackendHost(routeBackendHost, start) })
}

func (a *All) MeasureFilterResponse(filterName string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureFilterResponse(filterName, start) })
}

func (a *All) MeasureAllFiltersResponse(routeId string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureAllFiltersResponse(routeId, start) })
}

func (a *All) MeasureResponse(code int, method string, routeId string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureResponse(code, method, routeId, start) })
}

func (a *All) MeasureServe(routeId, host, method string, code int, start time.Time) {
	a.each(func(m Metrics) { m.MeasureServe(routeId, host, method, code, start) })
}

func (a *All) IncRoutingFailures() {
	a.each(Metrics.IncRoutingFailures)
}

func (a *All) IncErrorsBackend(routeId string) {
	a.each(func(m Metrics) { m.IncErrorsBackend(routeId) })
}

func (a *All) MeasureBackend5xx(t time.Time) {
	a.each(func(m Metrics) { m.MeasureBackend5xx(t) })
}

func (a *All) IncErrorsStreaming(routeId string) {
	a.each(func(m Metrics) { m.IncErrorsStreaming(routeId) })
}

func (a *All) Close() {
	a.each(Metrics.Close)
}

// RegisterHandler registers a single handler on path, choosing the format
// per request.
func (a *All) RegisterHandler(path string, mux *http.ServeMux) {
	a.handlers = map[bool]http.Handler{
		true:  a.codaHale.getHandler(path),
		false: a.prometheus.getHandler(),
	}

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		a.handlers[r.Header.Get("Accept") == codaHaleMediaType].ServeHTTP(w, r)
	})
}
