package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger instances provide custom logging.
type Logger interface {

	// Log with level ERROR
	Error(...interface{})

	// Log formatted messages with level ERROR
	Errorf(string, ...interface{})

	// Log with level WARN
	Warn(...interface{})

	// Log formatted messages with level WARN
	Warnf(string, ...interface{})

	// Log with level INFO
	Info(...interface{})

	// Log formatted messages with level INFO
	Infof(string, ...interface{})

	// Log with level DEBUG
	Debug(...interface{})

	// Log formatted messages with level DEBUG
	Debugf(string, ...interface{})
}

// DefaultLog provides a default implementation of the Logger interface.
// The zero value logs through the logrus standard logger.
type DefaultLog struct {
	entry logrus.FieldLogger
}

// New returns a DefaultLog writing to the logrus standard logger,
// attaching the passed fields, if any, to every entry.
func New(fields map[string]interface{}) *DefaultLog {
	if len(fields) == 0 {
		return &DefaultLog{}
	}

	return &DefaultLog{entry: logrus.WithFields(fields)}
}

// WithLogger returns a DefaultLog writing to the passed logrus logger.
func WithLogger(l logrus.FieldLogger) *DefaultLog {
	return &DefaultLog{entry: l}
}

func (dl *DefaultLog) log() logrus.FieldLogger {
	if dl.entry == nil {
		return logrus.StandardLogger()
	}

	return dl.entry
}

func (dl *DefaultLog) Error(a ...interface{})            { dl.log().Error(a...) }
func (dl *DefaultLog) Errorf(f string, a ...interface{}) { dl.log().Errorf(f, a...) }
func (dl *DefaultLog) Warn(a ...interface{})             { dl.log().Warn(a...) }
func (dl *DefaultLog) Warnf(f string, a ...interface{})  { dl.log().Warnf(f, a...) }
func (dl *DefaultLog) Info(a ...interface{})             { dl.log().Info(a...) }
func (dl *DefaultLog) Infof(f string, a ...interface{})  { dl.log().Infof(f, a...) }
func (dl *DefaultLog) Debug(a ...interface{})            { dl.log().Debug(a...) }
func (dl *DefaultLog) Debugf(f string, a ...interface{}) { dl.log().Debugf(f, a...) }
