package heartbeat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/giygas/pulse-api/health"
	"github.com/giygas/pulse-api/metrics"
)

func staticCheck(name string, status health.Status, reason string) health.Check {
	return health.NewCheck(name, func(ctx context.Context) health.Result {
		return health.Result{Status: status, Reason: reason}
	})
}

func TestStatusValue(t *testing.T) {
	tests := []struct {
		status   health.Status
		expected float64
	}{
		{health.StatusUp, 0},
		{health.StatusDegraded, 1},
		{health.StatusDown, 2},
	}

	for _, tt := range tests {
		if v := statusValue(tt.status); v != tt.expected {
			t.Errorf("Expected %v for %s, got %v", tt.expected, tt.status, v)
		}
	}
}

func TestNewRegistersGauge(t *testing.T) {
	registry := metrics.NewRegistry()
	reporter := health.NewReporter(health.Liveness())

	if _, err := New(reporter, registry, time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// A second heartbeat on the same registry must collide on the gauge name
	if _, err := New(reporter, registry, time.Minute); !errors.Is(err, metrics.ErrDuplicateMetric) {
		t.Errorf("Expected ErrDuplicateMetric, got %v", err)
	}
}

func TestTickUpdatesGauge(t *testing.T) {
	registry := metrics.NewRegistry()
	reporter := health.NewReporter(staticCheck("db", health.StatusDown, "connection refused"))

	hb, err := New(reporter, registry, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	hb.tick()

	rendered, err := registry.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(rendered, "health_status 2") {
		t.Errorf("Expected health_status 2 after DOWN check, got:\n%s", rendered)
	}
}

func TestStartRunsImmediateCheck(t *testing.T) {
	registry := metrics.NewRegistry()
	reporter := health.NewReporter(staticCheck("cache", health.StatusDegraded, "high latency"))

	hb, err := New(reporter, registry, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := hb.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer hb.Stop()

	rendered, err := registry.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(rendered, "health_status 1") {
		t.Errorf("Expected health_status 1 populated before first interval, got:\n%s", rendered)
	}
}
