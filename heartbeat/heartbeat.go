// Package heartbeat runs a periodic health self-check in the background.
// It is a second consumer of the health.Reporter: every interval it logs any
// non-UP status and mirrors the aggregate status into a gauge, so a scraper
// sees health transitions even between probe polls. The /metrics collectors
// themselves still sample synchronously inside the scrape request.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/pulse-api/health"
	"github.com/giygas/pulse-api/logging"
	"github.com/giygas/pulse-api/metrics"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
)

// checkTimeout bounds one self-check run
const checkTimeout = 5 * time.Second

// Heartbeat owns the background self-check job
type Heartbeat struct {
	scheduler   *gocron.Scheduler
	reporter    *health.Reporter
	statusGauge prometheus.Gauge
	interval    time.Duration
}

// New creates a heartbeat and registers its status gauge with the registry
func New(reporter *health.Reporter, registry *metrics.Registry, interval time.Duration) (*Heartbeat, error) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "health_status",
		Help: "Aggregated health status (0=UP, 1=DEGRADED, 2=DOWN)",
	})

	if err := registry.Register(gauge); err != nil {
		return nil, fmt.Errorf("registering health_status gauge: %w", err)
	}

	return &Heartbeat{
		scheduler:   gocron.NewScheduler(time.UTC),
		reporter:    reporter,
		statusGauge: gauge,
		interval:    interval,
	}, nil
}

// Start schedules the self-check job and runs an immediate first check so the
// gauge is populated before the first scrape.
func (h *Heartbeat) Start() error {
	h.tick()

	_, err := h.scheduler.Every(h.interval).Do(h.tick)
	if err != nil {
		return fmt.Errorf("scheduling heartbeat: %w", err)
	}

	h.scheduler.StartAsync()
	logging.Info("Heartbeat started", "interval", h.interval.String())

	return nil
}

// Stop terminates the scheduler
func (h *Heartbeat) Stop() {
	h.scheduler.Stop()
}

// tick runs one self-check
func (h *Heartbeat) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	report := h.reporter.Check(ctx)
	h.statusGauge.Set(statusValue(report.Status))

	if report.Status != health.StatusUp {
		logging.Warn("Self-check reported non-UP status",
			"status", string(report.Status),
			"reason", report.Reason)
	}
}

// statusValue maps a status to its gauge encoding
func statusValue(s health.Status) float64 {
	switch s {
	case health.StatusDown:
		return 2
	case health.StatusDegraded:
		return 1
	default:
		return 0
	}
}
