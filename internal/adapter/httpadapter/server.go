// Package httpadapter exposes health checks and metrics for the length of one batch
// run, so an orchestrator can watch a long download or process step.
package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor serves /healthz, /readyz and /metrics while the pipeline runs.
// Readiness follows the pipeline; metrics come from the run's own registry.
type Monitor struct {
	srv    *http.Server
	ln     net.Listener
	served chan error
	logger *slog.Logger
}

// NewMonitor builds the routes. Nothing listens until Listen.
func NewMonitor(addr string, ready sharedobs.ReadinessChecker, gatherer prometheus.Gatherer, logger *slog.Logger) *Monitor {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}))

	return &Monitor{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Listen binds the address and serves in the background. A bind failure is
// returned here rather than lost in the serving goroutine.
func (m *Monitor) Listen() error {
	ln, err := net.Listen("tcp", m.srv.Addr)
	if err != nil {
		return fmt.Errorf("monitor listen on %s: %w", m.srv.Addr, err)
	}
	m.ln = ln
	m.served = make(chan error, 1)
	m.logger.Info("monitor listening", "addr", ln.Addr().String())

	go func() {
		defer close(m.served)
		if err := m.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			m.served <- err
		}
	}()
	return nil
}

// Addr is the bound address, or "" before Listen.
func (m *Monitor) Addr() string {
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

// Close drains open requests within ctx and reports any error the server
// stopped with. It is a no-op when Listen was never called.
func (m *Monitor) Close(ctx context.Context) error {
	if m.ln == nil {
		return nil
	}
	err := m.srv.Shutdown(ctx)
	return errors.Join(err, <-m.served)
}

// ServeHTTP routes a request without a listener.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.srv.Handler.ServeHTTP(w, r)
}
