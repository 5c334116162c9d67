package logging

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dateFormat      = "02/Jan/2006:15:04:05 -0700"
	commonLogFormat = `%s - - [%s] "%s %s %s" %d %d`
	// format:
	// remote_host - - [date] "method uri protocol" status response_size "referer" "user_agent"
	combinedLogFormat = commonLogFormat + ` "%s" "%s"`
	// extended with the duration in ms, the requested host, the flow id
	// and the forwarded url
	accessLogFormat = combinedLogFormat + ` %d %s "%s" "%s"` + "\n"
)

var accessLogKeys = []string{
	"host", "timestamp", "method", "uri", "proto",
	"status", "response-size", "referer", "user-agent",
	"duration", "requested-host", "flow-id", "forwarded-url",
}

type accessLogFormatter struct {
	format string
}

// Access log entry.
type AccessEntry struct {

	// The client request.
	Request *http.Request

	// The status code of the response.
	StatusCode int

	// The size of the response in bytes.
	ResponseSize int64

	// The time spent processing request.
	Duration time.Duration

	// The time that the request was received.
	RequestTime time.Time

	// FlowId of the request, when set by the flowId filter.
	FlowId string

	// ForwardedURL is the destination taken from the
	// X-CF-Forwarded-Url header, empty when the request went to the
	// default backend or was not forwarded.
	ForwardedURL string
}

var accessLog *logrus.Logger

// remoteHost returns the client host without the port. When the
// 'X-Forwarded-For' header is set, then it is used instead of the remote
// address.
func remoteHost(r *http.Request) string {
	a := r.Header.Get("X-Forwarded-For")
	if a == "" {
		a = r.RemoteAddr
	}

	if h, _, err := net.SplitHostPort(a); err == nil {
		a = h
	}

	if a == "" {
		return "-"
	}

	return a
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	values := make([]interface{}, len(accessLogKeys))
	for i, key := range accessLogKeys {
		values[i] = e.Data[key]
	}

	return []byte(fmt.Sprintf(f.format, values...)), nil
}

// LogAccess logs an access event in Apache combined log format, extended
// with the duration, the requested host, the flow id and the forwarded
// url. The additional fields are only visible in the JSON format, and they
// cannot override the fields of the entry.
func LogAccess(entry *AccessEntry, additional map[string]interface{}) {
	if accessLog == nil || entry == nil {
		return
	}

	fields := logrus.Fields{
		"timestamp":      entry.RequestTime.Format(dateFormat),
		"host":           "-",
		"method":         "",
		"uri":            "",
		"proto":          "",
		"referer":        "",
		"user-agent":     "",
		"requested-host": "",
		"status":         entry.StatusCode,
		"response-size":  entry.ResponseSize,
		"duration":       int64(entry.Duration / time.Millisecond),
		"flow-id":        orDash(entry.FlowId),
		"forwarded-url":  orDash(entry.ForwardedURL),
	}

	if r := entry.Request; r != nil {
		fields["host"] = remoteHost(r)
		fields["method"] = r.Method
		fields["uri"] = r.RequestURI
		fields["proto"] = r.Proto
		fields["referer"] = r.Referer()
		fields["user-agent"] = r.UserAgent()
		fields["requested-host"] = r.Host
	}

	for k, v := range additional {
		if _, reserved := fields[k]; !reserved {
			fields[k] = v
		}
	}

	accessLog.WithFields(fields).Infoln()
}
