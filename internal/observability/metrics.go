package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Step and account outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics tracks run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AccountsTotal    *prometheus.CounterVec
	StepsTotal       *prometheus.CounterVec
	ScreenshotsTotal prometheus.Counter

	logger *slog.Logger
	server *http.Server
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AccountsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saucebot",
			Name:      "accounts_total",
			Help:      "Accounts processed, by outcome.",
		}, []string{"outcome"}),
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saucebot",
			Name:      "steps_total",
			Help:      "Flow steps attempted, by step and outcome.",
		}, []string{"step", "outcome"}),
		ScreenshotsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "saucebot",
			Name:      "screenshots_total",
			Help:      "Screenshots written.",
		}),
		logger: logger.With("component", "metrics"),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Account records one finished account.
func (m *Metrics) Account(outcome string) {
	if m == nil {
		return
	}
	m.AccountsTotal.WithLabelValues(outcome).Inc()
}

// Step records one step outcome.
func (m *Metrics) Step(step, outcome string) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(step, outcome).Inc()
}

// Screenshot records one written screenshot.
func (m *Metrics) Screenshot() {
	if m == nil {
		return
	}
	m.ScreenshotsTotal.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("metrics path must start with /, got %q", path)
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Snapshot returns every counter, keyed by family name and label values.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	families, err := m.registry.Gather()
	if err != nil {
		return out
	}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			name := fam.GetName()
			for _, lp := range metric.GetLabel() {
				name += "_" + lp.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				out[name] += int64(c.GetValue())
			}
		}
	}
	return out
}
