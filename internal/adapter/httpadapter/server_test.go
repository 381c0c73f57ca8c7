package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/rio-sonora-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestMonitor(addr string, readyErr error) *httpadapter.Monitor {
	metrics := observability.NewMetrics()
	metrics.Runs.WithLabelValues("livestock", "success").Inc()
	return httpadapter.NewMonitor(addr, &mockReadiness{err: readyErr}, metrics.Registry, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestMonitor(":0", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestMonitor(":0", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestMonitor(":0", fmt.Errorf("no dataset has been processed yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no dataset has been processed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestMonitor(":0", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `rio_sonora_etl_runs_total{family="livestock",outcome="success"} 1`)
}

func TestMonitorServesUntilClosed(t *testing.T) {
	mon := newTestMonitor("127.0.0.1:0", nil)
	assert.Empty(t, mon.Addr())
	require.NoError(t, mon.Listen())

	resp, err := http.Get("http://" + mon.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mon.Close(ctx))

	_, err = http.Get("http://" + mon.Addr() + "/healthz")
	assert.Error(t, err, "listener should be closed")
}

func TestMonitorListenReportsBindFailure(t *testing.T) {
	first := newTestMonitor("127.0.0.1:0", nil)
	require.NoError(t, first.Listen())
	t.Cleanup(func() { _ = first.Close(context.Background()) })

	second := newTestMonitor(first.Addr(), nil)
	err := second.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), first.Addr())
	assert.NoError(t, second.Close(context.Background()), "closing an unbound monitor is a no-op")
}
