package loggingtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfexamples/routeservice/logging"
	"github.com/cfexamples/routeservice/logging/loggingtest"
)

var _ logging.Logger = loggingtest.New()

func TestWaitForEveryLevel(t *testing.T) {
	tl := loggingtest.New()
	defer tl.Close()

	tl.Debug("debug")
	tl.Debugf("debugf: %s", "forwarded")
	tl.Info("info")
	tl.Infof("infof: %s", "forwarded")
	tl.Warn("warn")
	tl.Warnf("warnf: %s", "forwarded")
	tl.Error("error")
	tl.Errorf("errorf: %s", "malformed")

	for _, s := range []string{
		"debug", "debugf: forwarded",
		"info", "infof: forwarded",
		"warn", "warnf: forwarded",
		"error", "errorf: malformed",
	} {
		require.NoError(t, tl.WaitFor(s, time.Second), s)
	}

	assert.Equal(t, 2, tl.Count("info"))
	assert.Equal(t, 3, tl.Count("forwarded"))
	assert.Equal(t, 1, tl.CountLevel(loggingtest.ErrorLevel, "malformed"))
	assert.Equal(t, 0, tl.CountLevel(loggingtest.InfoLevel, "malformed"))
}

func TestResetAndMute(t *testing.T) {
	tl := loggingtest.New()
	defer tl.Close()

	tl.Info("passthrough")
	require.NoError(t, tl.WaitFor("passthrough", time.Second))

	tl.Reset()
	assert.Equal(t, loggingtest.ErrWaitTimeout, tl.WaitForN("passthrough", 1, time.Millisecond))

	tl.Mute()
	tl.Info("muted")
	assert.Equal(t, 0, tl.Count("muted"))

	tl.Unmute()
	tl.Info("unmuted")
	require.NoError(t, tl.WaitFor("unmuted", time.Second))
}

func TestLogAfterClose(t *testing.T) {
	tl := loggingtest.New()
	tl.Close()

	done := make(chan struct{})
	go func() {
		tl.Info("dropped")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logging after close blocked")
	}
}
