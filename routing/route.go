package routing

import (
	"errors"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/cfexamples/routeservice/filters"
)

// DefaultRouteId is the id of the route when Options.Id is not set.
const DefaultRouteId = "routeservice"

var (
	ErrUnknownFilter  = errors.New("unknown filter")
	ErrInvalidBackend = errors.New("invalid backend address")
)

// FilterDef is the definition of a filter in the route chain, by its
// name and its arguments.
type FilterDef struct {
	Name string        `yaml:"name"`
	Args []interface{} `yaml:"args"`
}

// RouteFilter contains extensions to generic filter
// interface, serving mainly logging/monitoring
// purpose.
type RouteFilter struct {
	filters.Filter
	Name string

	// Index is the position of the filter in the chain.
	Index int
}

// Route is the route of the service, with the filter instances and the
// parsed backend address.
type Route struct {
	// Id identifies the route in the logs, traces and metrics.
	Id string

	// Backend is the default destination of the route, as configured. Empty
	// for shunt routes.
	Backend string

	// Scheme and Host of the parsed backend address.
	Scheme, Host string

	// Filters are the filter instances in the order of the chain.
	Filters []*RouteFilter

	// Shunt is set when the route has no backend.
	Shunt bool
}

// Options to construct the route.
type Options struct {
	// Id of the route. Defaults to DefaultRouteId.
	Id string

	// Backend is the default destination. It must be an absolute http or
	// https URL, or empty for a shunt route.
	Backend string

	// Filters of the chain, in order.
	Filters []*FilterDef

	// FilterRegistry to resolve the filter names.
	FilterRegistry filters.Registry
}

func parseBackend(b string) (scheme, host string, err error) {
	u, err := url.Parse(b)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidBackend, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidBackend, b)
	}

	return u.Scheme, u.Host, nil
}

func createFilter(r filters.Registry, def *FilterDef) (filters.Filter, error) {
	spec, ok := r[def.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, def.Name)
	}

	f, err := spec.CreateFilter(def.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter %q: %w", def.Name, err)
	}

	return f, nil
}

// New creates the route of the service, creating every filter of the
// chain. When any of the filters fails, the already created filters are
// closed.
func New(o Options) (*Route, error) {
	r := &Route{Id: o.Id, Backend: o.Backend}
	if r.Id == "" {
		r.Id = DefaultRouteId
	}

	if o.Backend == "" {
		r.Shunt = true
	} else {
		var err error
		r.Scheme, r.Host, err = parseBackend(o.Backend)
		if err != nil {
			return nil, err
		}
	}

	for i, def := range o.Filters {
		f, err := createFilter(o.FilterRegistry, def)
		if err != nil {
			r.Close()
			return nil, err
		}

		r.Filters = append(r.Filters, &RouteFilter{Filter: f, Name: def.Name, Index: i})
	}

	return r, nil
}

// Close closes the filters of the route that hold resources.
func (r *Route) Close() {
	for _, f := range r.Filters {
		if fc, ok := f.Filter.(filters.FilterCloser); ok {
			if err := fc.Close(); err != nil {
				log.Errorf("failed to close filter %s: %v", f.Name, err)
			}
		}
	}
}

// FilterNames returns the names of the filters in the order of the chain.
func (r *Route) FilterNames() []string {
	names := make([]string, len(r.Filters))
	for i, f := range r.Filters {
		names[i] = f.Name
	}

	return names
}
