// Package metrics exports the result of a run as a Prometheus textfile for
// the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/urlmonitor/internal/debounce"
	"github.com/hamed0406/urlmonitor/internal/monitor"
)

type Metrics struct {
	LastRunTimestamp    prometheus.Gauge
	LastRunDuration     prometheus.Gauge
	TargetUp            *prometheus.GaugeVec
	ConsecutiveFailures *prometheus.GaugeVec
	AlertsSent          *prometheus.GaugeVec
	Errors              *prometheus.GaugeVec
}

type Bundle struct {
	Registry *prometheus.Registry
	Metrics  *Metrics
}

func NewBundle() *Bundle {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "urlmonitor_last_run_timestamp_seconds",
			Help: "Unix time the last monitoring cycle started.",
		}),
		LastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "urlmonitor_last_run_duration_seconds",
			Help: "Wall time of the last monitoring cycle.",
		}),
		TargetUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmonitor_target_up",
				Help: "Whether the target was reachable with the expected content (1) or not (0).",
			},
			[]string{"url", "description"},
		),
		ConsecutiveFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmonitor_consecutive_failures",
				Help: "Failure streak after the last cycle, saturated at the threshold.",
			},
			[]string{"url", "description"},
		),
		// Gauges, not counters: each file describes a single run.
		AlertsSent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmonitor_alerts_sent",
				Help: "Alerts delivered during the last cycle, by kind.",
			},
			[]string{"kind"},
		),
		Errors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmonitor_errors",
				Help: "Non-fatal errors during the last cycle, by kind.",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.LastRunTimestamp,
		m.LastRunDuration,
		m.TargetUp,
		m.ConsecutiveFailures,
		m.AlertsSent,
		m.Errors,
	)

	// Pre-create the fixed series so an idle run still writes zeros.
	for _, k := range []debounce.Kind{debounce.AlertDown, debounce.AlertUp} {
		m.AlertsSent.WithLabelValues(k.String()).Set(0)
	}
	for _, k := range errorKinds {
		m.Errors.WithLabelValues(k).Set(0)
	}

	return &Bundle{Registry: reg, Metrics: m}
}

var errorKinds = []string{
	monitor.ErrKindConfig,
	monitor.ErrKindStateLoad,
	monitor.ErrKindStateSave,
	monitor.ErrKindNotify,
}

// Observe records a finished cycle.
func (m *Metrics) Observe(rep monitor.Report) {
	m.LastRunTimestamp.Set(float64(rep.Started.UnixNano()) / 1e9)
	m.LastRunDuration.Set(rep.Duration.Seconds())

	for _, t := range rep.Targets {
		v := 0.0
		if t.Outcome.OK() {
			v = 1
		}
		m.TargetUp.WithLabelValues(t.Target.URL, t.Target.Description).Set(v)
		m.ConsecutiveFailures.WithLabelValues(t.Target.URL, t.Target.Description).Set(float64(t.Next.ConsecutiveFailures))
	}

	m.AlertsSent.WithLabelValues(debounce.AlertDown.String()).Set(float64(rep.Alerts(debounce.AlertDown)))
	m.AlertsSent.WithLabelValues(debounce.AlertUp.String()).Set(float64(rep.Alerts(debounce.AlertUp)))

	kinds := make([]string, 0, len(rep.Counts))
	for k := range rep.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		m.Errors.WithLabelValues(k).Set(float64(rep.Counts[k]))
	}
}

// WriteFile writes the registry to path. prometheus.WriteToTextfile renames
// a temporary file into place, so the collector never reads a partial file.
func (b *Bundle) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, b.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
