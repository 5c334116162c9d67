package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationLog(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	for _, tt := range []struct {
		name     string
		options  Options
		contains []string
		excludes []string
		prefix   string
	}{{
		name:     "custom output",
		contains: []string{"route service started"},
	}, {
		name:     "custom prefix",
		options:  Options{ApplicationLogPrefix: "[TEST_PREFIX]"},
		contains: []string{"route service started"},
		prefix:   "[TEST_PREFIX]",
	}, {
		name:     "level",
		options:  Options{ApplicationLogLevel: log.WarnLevel},
		contains: []string{"malformed URL"},
		excludes: []string{"route service started"},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.options.ApplicationLogOutput = &buf
			Init(tt.options)

			log.Info("route service started")
			log.Warn("malformed URL")

			got := buf.String()
			assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}

			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestApplicationLogJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{ApplicationLogOutput: &buf, ApplicationLogJSONEnabled: true})
	defer log.SetFormatter(&log.TextFormatter{})

	log.WithField("filter", "cfForwardedUrl").Info("forwarding")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "forwarding", doc["msg"])
	assert.Equal(t, "cfForwardedUrl", doc["filter"])
}

func TestCustomOutputForAccessLog(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf})
	LogAccess(&AccessEntry{StatusCode: http.StatusTeapot}, nil)
	assert.Contains(t, buf.String(), "418")
}
