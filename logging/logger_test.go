package logging_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/cfexamples/routeservice/logging"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	log := logging.WithLogger(l)
	for _, tt := range []struct {
		level    string
		log      func()
		expected string
	}{
		{"error", func() { log.Error("forwarding failed") }, `level=error msg="forwarding failed"`},
		{"errorf", func() { log.Errorf("malformed URL: %s", "x") }, `level=error msg="malformed URL: x"`},
		{"warn", func() { log.Warn("slow backend") }, `level=warning msg="slow backend"`},
		{"warnf", func() { log.Warnf("slow backend: %d", 3) }, `level=warning msg="slow backend: 3"`},
		{"info", func() { log.Info("forwarding") }, `level=info msg=forwarding`},
		{"infof", func() { log.Infof("forwarding to %s", "app") }, `level=info msg="forwarding to app"`},
		{"debug", func() { log.Debug("no destination") }, `level=debug msg="no destination"`},
		{"debugf", func() { log.Debugf("no destination for %s", "/") }, `level=debug msg="no destination for /"`},
	} {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.log()
			assert.Equal(t, tt.expected+"\n", buf.String())
		})
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(os.Stderr)

	logging.New(map[string]interface{}{"filter": "cfForwardedUrl"}).Info("forwarding")
	assert.Contains(t, buf.String(), "filter=cfForwardedUrl")

	buf.Reset()
	logging.New(nil).Info("forwarding")
	assert.NotContains(t, buf.String(), "filter=")
}
