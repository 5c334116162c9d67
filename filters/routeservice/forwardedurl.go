package routeservice

import (
	"net/url"

	"github.com/cfexamples/routeservice/filters"
	"github.com/cfexamples/routeservice/logging"
)

const (
	// ForwardedUrlHeader is the header set by the Cloud Foundry router,
	// containing the original target of the request.
	ForwardedUrlHeader = "X-Cf-Forwarded-Url"

	ForwardedCounter   = "forwarded"
	PassthroughCounter = "passthrough"
	MalformedCounter   = "malformed"

	spanEventKey        = "route_service"
	spanForwardedUrlKey = "forwarded_url"
)

type spec struct {
	log logging.Logger
}

type filter struct {
	log logging.Logger
}

// NewForwardedURL creates the filter specification of the cfForwardedUrl
// filter. The filters created by it log with log. When log is nil, the
// default application logger is used.
func NewForwardedURL(log logging.Logger) filters.Spec {
	if log == nil {
		log = &logging.DefaultLog{}
	}

	return &spec{log: log}
}

func (*spec) Name() string { return filters.CfForwardedUrlName }

func (s *spec) CreateFilter(args []interface{}) (filters.Filter, error) {
	if len(args) != 0 {
		return nil, filters.ErrInvalidFilterParameters
	}

	return &filter{log: s.log}, nil
}

// ParseForwardedURL parses the value of the X-CF-Forwarded-Url header. The
// value is accepted only when it is an absolute URL with the http or https
// scheme and a host.
func ParseForwardedURL(value string) (*url.URL, bool) {
	if value == "" {
		return nil, false
	}

	u, err := url.Parse(value)
	if err != nil {
		return nil, false
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, false
	}

	return u, true
}

func (f *filter) Request(ctx filters.FilterContext) {
	values, ok := ctx.Request().Header[ForwardedUrlHeader]
	if !ok || len(values) == 0 {
		f.log.Info("route service received a request without X-CF-Forwarded-Url")
		logSpan(ctx, spanEventKey, PassthroughCounter)
		ctx.Metrics().IncCounter(PassthroughCounter)
		return
	}

	value := values[0]
	u, ok := ParseForwardedURL(value)
	if !ok {
		f.log.Errorf("malformed URL in X-CF-Forwarded-Url: %s", value)
		if span := ctx.ParentSpan(); span != nil {
			span.SetTag("error", true)
			span.LogKV("event", "error", "message", "malformed URL in X-CF-Forwarded-Url")
		}

		ctx.Metrics().IncCounter(MalformedCounter)
		return
	}

	ctx.SetDestination(u)
	ctx.SetOutgoingHost(u.Host)

	f.log.Infof("route service forwarding request to %s", u.Redacted())
	logSpan(ctx, spanEventKey, "forward", spanForwardedUrlKey, u.Redacted())
	ctx.Metrics().IncCounter(ForwardedCounter)
}

func (*filter) Response(filters.FilterContext) {}

func logSpan(ctx filters.FilterContext, kv ...interface{}) {
	if span := ctx.ParentSpan(); span != nil {
		span.LogKV(kv...)
	}
}
