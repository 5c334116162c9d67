package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type prefixFormatter struct {
	prefix    string
	formatter logrus.Formatter
}

// Init options for logging.
type Options struct {

	// Prefix for application log entries. Primarily used to be
	// able to select between access log and application log
	// entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil,
	// os.Stderr is used.
	ApplicationLogOutput io.Writer

	// Minimum level of the application log entries. When not
	// set, it defaults to INFO.
	ApplicationLogLevel logrus.Level

	// When set, the application log entries are printed in
	// JSON format.
	ApplicationLogJSONEnabled bool

	// Output for the access log entries, when nil, os.Stderr is
	// used.
	AccessLogOutput io.Writer

	// When set, no access log is printed.
	AccessLogDisabled bool

	// When set, log in JSON format is used
	AccessLogJSONEnabled bool
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}

	return append([]byte(f.prefix), b...), nil
}

func initApplicationLog(o Options) {
	var formatter logrus.Formatter = &logrus.TextFormatter{}
	if o.ApplicationLogJSONEnabled {
		formatter = &logrus.JSONFormatter{}
	}

	if o.ApplicationLogPrefix != "" {
		formatter = &prefixFormatter{o.ApplicationLogPrefix, formatter}
	}

	logrus.SetFormatter(formatter)

	if o.ApplicationLogOutput != nil {
		logrus.SetOutput(o.ApplicationLogOutput)
	}

	level := o.ApplicationLogLevel
	if level == logrus.PanicLevel {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
}

func initAccessLog(output io.Writer, accessLogJSONEnabled bool) {
	l := logrus.New()
	if accessLogJSONEnabled {
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: dateFormat, DisableTimestamp: true}
	} else {
		l.Formatter = &accessLogFormatter{accessLogFormat}
	}
	l.Out = output
	l.Level = logrus.InfoLevel
	accessLog = l
}

// Initializes logging.
func Init(o Options) {
	initApplicationLog(o)

	if o.AccessLogDisabled {
		accessLog = nil
		return
	}

	if o.AccessLogOutput == nil {
		o.AccessLogOutput = os.Stderr
	}

	initAccessLog(o.AccessLogOutput, o.AccessLogJSONEnabled)
}
