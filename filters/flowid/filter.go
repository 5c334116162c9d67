package flowid

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cfexamples/routeservice/filters"
)

const (
	Name                = filters.FlowIdName
	ReuseParameterValue = "reuse"
	HeaderName          = "X-Flow-Id"

	// SpanTag is set on the request span with the flow id.
	SpanTag = "flow_id"
)

type flowIdSpec struct {
	generator Generator
}

type flowId struct {
	reuseExisting bool
	generator     Generator
}

// New creates a new instance of the flowId filter spec which uses the
// standard generator, with the default length.
func New() filters.Spec {
	g, err := NewStandardGenerator(defaultLen)
	if err != nil {
		panic(err)
	}

	return NewWithGenerator(g)
}

// NewWithGenerator behaves like New but allows you to specify any other
// Generator.
func NewWithGenerator(generator Generator) filters.Spec {
	return &flowIdSpec{generator: generator}
}

// Request will inspect the current Request for the presence of an X-Flow-Id
// header which will be kept in case the "reuse" flag has been set. In any
// other case, it will set the same header with the value returned from the
// defined Flow ID Generator.
func (f *flowId) Request(fc filters.FilterContext) {
	r := fc.Request()
	var flowId string

	if f.reuseExisting {
		flowId = r.Header.Get(HeaderName)
		if !f.generator.IsValid(flowId) {
			flowId = ""
		}
	}

	if flowId == "" {
		var err error
		flowId, err = f.generator.Generate()
		if err != nil {
			log.Errorf("failed to generate flow id: %v", err)
			return
		}

		r.Header.Set(HeaderName, flowId)
	}

	if span := fc.ParentSpan(); span != nil {
		span.SetTag(SpanTag, flowId)
	}
}

// Response is No-Op in this filter.
func (*flowId) Response(filters.FilterContext) {}

// CreateFilter will return a new flowId filter from the spec. The first
// optional argument is the string "reuse", any other string disables the
// reuse of an existing flow id. The second optional argument is the length
// of the generated flow ids, it selects the standard generator.
func (spec *flowIdSpec) CreateFilter(fc []interface{}) (filters.Filter, error) {
	if len(fc) > 2 {
		return nil, filters.ErrInvalidFilterParameters
	}

	var reuseExisting bool
	if len(fc) > 0 {
		r, ok := fc[0].(string)
		if !ok {
			return nil, filters.ErrInvalidFilterParameters
		}

		reuseExisting = strings.ToLower(r) == ReuseParameterValue
	}

	generator := spec.generator
	if len(fc) > 1 {
		l, ok := fc[1].(float64)
		if !ok || l != float64(int(l)) {
			return nil, filters.ErrInvalidFilterParameters
		}

		g, err := NewStandardGenerator(int(l))
		if err != nil {
			return nil, filters.ErrInvalidFilterParameters
		}

		generator = g
	}

	return &flowId{reuseExisting: reuseExisting, generator: generator}, nil
}

// Name returns the canonical filter name
func (*flowIdSpec) Name() string { return Name }
