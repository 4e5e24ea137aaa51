// Package metrics records editor activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solatis/rulebook/internal/rules"
)

const namespace = "rulebook"

// Recorder implements rules.Observer.
// Metrics live in their own registry so tests and multiple stores don't collide.
type Recorder struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	failures *prometheus.CounterVec
	ruleSets prometheus.Gauge
	rules    prometheus.Gauge
	editMode prometheus.Gauge
}

var _ rules.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder with process and Go collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched to the rules store.",
		}, []string{"command"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "Commands rejected by the rules store.",
		}, []string{"command"}),
		ruleSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rule_sets",
			Help:      "Rulesets currently held by the store.",
		}),
		rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules",
			Help:      "Rules across all rulesets currently held by the store.",
		}),
		editMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edit_mode",
			Help:      "1 while the store is in edit mode.",
		}),
	}

	r.registry.MustRegister(
		r.commands, r.failures, r.ruleSets, r.rules, r.editMode,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe implements rules.Observer.
func (r *Recorder) Observe(command string, err error, state rules.State) {
	r.commands.WithLabelValues(command).Inc()
	if err != nil {
		r.failures.WithLabelValues(command).Inc()
	}

	total := 0
	for _, rs := range state.RuleSets {
		total += len(rs.Rules)
	}
	r.ruleSets.Set(float64(len(state.RuleSets)))
	r.rules.Set(float64(total))
	if state.IsEditMode {
		r.editMode.Set(1)
	} else {
		r.editMode.Set(0)
	}
}

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Serve runs a /metrics listener on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
