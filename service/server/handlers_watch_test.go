package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solgate/service/temporal"
)

func TestStartWatch(t *testing.T) {
	watcher := temporal.NewMockWatcher()
	store := newFakeWatchStore()
	ts, _ := newTestServer(t, testDeps{watcher: watcher, watches: store})
	sig := testSig(3)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/v1/transactions/"+sig+"/watch", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	assert.Equal(t, sig, body["signature"])
	assert.Equal(t, temporal.WatchWorkflowID(sig), body["workflow_id"])
	assert.Equal(t, 1, watcher.StartCount(sig))

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/transactions/"+sig+"/watch", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, temporal.WatchWorkflowID(sig), body["workflow_id"])
}

func TestStartWatch_WatcherFails(t *testing.T) {
	watcher := temporal.NewMockWatcher()
	watcher.SetStartError(errors.New("temporal unavailable"))
	ts, _ := newTestServer(t, testDeps{watcher: watcher, watches: newFakeWatchStore()})

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/v1/transactions/"+testSig(3)+"/watch", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", body["kind"])
	assert.NotContains(t, body["message"], "temporal unavailable")
}

func TestStartWatch_InvalidSignature(t *testing.T) {
	watcher := temporal.NewMockWatcher()
	ts, _ := newTestServer(t, testDeps{watcher: watcher})

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/v1/transactions/short/watch", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, watcher.StartCount("short"))
}

func TestWatch_NotConfigured(t *testing.T) {
	ts, _ := newTestServer(t, testDeps{})

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/v1/transactions/"+testSig(3)+"/watch", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "unimplemented", body["kind"])

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/transactions/"+testSig(3)+"/watch", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestGetWatch_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, testDeps{watches: newFakeWatchStore()})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/transactions/"+testSig(4)+"/watch", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["kind"])
}
