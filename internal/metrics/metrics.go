// Package metrics exposes acquisition counters through Prometheus.
//
// Each supervisor run owns a Registry so tests and repeated runs in one
// process never collide on registration. All methods are safe on a nil
// *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reactir/internal/logging"
)

const namespace = "reactir"

// Metrics holds the collectors for one run.
type Metrics struct {
	registry  *prometheus.Registry
	spectra   prometheus.Counter
	trendRows prometheus.Counter
	flushes   *prometheus.CounterVec
	faults    *prometheus.CounterVec
	loopState *prometheus.GaugeVec
}

// New builds and registers the run collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		spectra: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spectra_total",
			Help:      "Raw spectra persisted with their sidecar.",
		}),
		trendRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trend_rows_total",
			Help:      "Probe and peak rows committed by the trend loop.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trend_flushes_total",
			Help:      "Trend batch flushes by result.",
		}, []string{"result"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Faults recorded to the run error log by kind.",
		}, []string{"kind"}),
		loopState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_state",
			Help:      "Current state of each acquisition loop (0 awaiting, 1 sampling, 2 draining, 3 stopped).",
		}, []string{"loop"}),
	}
	m.registry.MustRegister(m.spectra, m.trendRows, m.flushes, m.faults, m.loopState)
	return m
}

// Registry returns the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SpectrumRecorded() {
	if m == nil {
		return
	}
	m.spectra.Inc()
}

func (m *Metrics) TrendRowsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trendRows.Add(float64(n))
}

// Flush records one trend flush attempt.
func (m *Metrics) Flush(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.flushes.WithLabelValues(result).Inc()
}

func (m *Metrics) Fault(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unexpected"
	}
	m.faults.WithLabelValues(kind).Inc()
}

// LoopState sets the numeric state of loop.
func (m *Metrics) LoopState(loop string, state int) {
	if m == nil {
		return
	}
	m.loopState.WithLabelValues(loop).Set(float64(state))
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns the
// bound address once listening so callers can log or probe it.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) (string, error) {
	if m == nil {
		return "", errors.New("metrics disabled")
	}
	logger = logging.NewComponentLogger(logger, "metrics")

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", logging.Error(err))
		}
	}()

	bound := listener.Addr().String()
	logger.Info("metrics listening", logging.String("addr", bound))
	return bound, nil
}
