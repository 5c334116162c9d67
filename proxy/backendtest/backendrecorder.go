// Package backendtest provides a recording test backend for the proxy
// tests.
package backendtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	log "github.com/sirupsen/logrus"
)

// RecordedRequest holds what a backend received.
type RecordedRequest struct {
	URL    *url.URL
	Host   string
	Header http.Header
	Body   string
}

type Done chan struct{}

// BackendRecorder echoes the request body and records every request it
// receives. Done is closed when the expected number of requests arrived.
type BackendRecorder struct {
	server           *httptest.Server
	requests         []RecordedRequest
	mutex            sync.RWMutex
	expectedRequests int
	pendingRequests  int
	Done             Done
}

func (rec *BackendRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("backendrecorder: error while reading request body")
	}

	w.Header().Set("X-Recorded-Path", r.URL.Path)

	// return request body in the response
	_, err = w.Write(body)
	if err != nil {
		log.Error("backendrecorder: error while writing the response body")
	}

	rec.mutex.Lock()
	defer rec.mutex.Unlock()

	rec.requests = append(rec.requests, RecordedRequest{
		URL:    r.URL,
		Host:   r.Host,
		Header: r.Header.Clone(),
		Body:   string(body),
	})

	rec.pendingRequests--
	if rec.pendingRequests == 0 {
		close(rec.Done)
	}
}

func (rec *BackendRecorder) GetRequests() []RecordedRequest {
	rec.mutex.RLock()
	defer rec.mutex.RUnlock()
	requests := make([]RecordedRequest, len(rec.requests))
	copy(requests, rec.requests)
	return requests
}

func (rec *BackendRecorder) GetServedRequests() int {
	rec.mutex.RLock()
	defer rec.mutex.RUnlock()
	return len(rec.requests)
}

func (rec *BackendRecorder) GetExpectedRequests() int {
	rec.mutex.RLock()
	defer rec.mutex.RUnlock()
	return rec.expectedRequests
}

func (rec *BackendRecorder) GetURL() string {
	return rec.server.URL
}

func (rec *BackendRecorder) Close() {
	rec.server.Close()
}

func NewBackendRecorder(expectedRequests int) *BackendRecorder {
	handler := &BackendRecorder{
		pendingRequests:  expectedRequests,
		expectedRequests: expectedRequests,
		Done:             make(chan struct{}),
	}

	if expectedRequests == 0 {
		close(handler.Done)
	}

	server := httptest.NewServer(handler)
	handler.server = server
	return handler
}
