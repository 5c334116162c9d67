package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingWriterDefaults(t *testing.T) {
	w := NewLoggingWriter(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, w.GetCode())
	assert.Zero(t, w.GetBytes())
}

func TestLoggingWriterRecordsResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	w := NewLoggingWriter(rr)

	w.Header().Set("X-Flow-Id", "flow")
	w.WriteHeader(http.StatusBadGateway)
	_, err := w.Write([]byte("Bad Gateway"))
	require.NoError(t, err)
	w.Flush()

	assert.Equal(t, "flow", rr.Header().Get("X-Flow-Id"))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, http.StatusBadGateway, w.GetCode())
	assert.Equal(t, "Bad Gateway", rr.Body.String())
	assert.Equal(t, int64(len("Bad Gateway")), w.GetBytes())
	assert.True(t, rr.Flushed)
}

func TestLoggingWriterHijackNotSupported(t *testing.T) {
	_, _, err := NewLoggingWriter(httptest.NewRecorder()).Hijack()
	assert.Error(t, err)
}
