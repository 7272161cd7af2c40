package metrics

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// metricLine matches one sample line of the text exposition format
var metricLine = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*(\{[^{}]*\})? (NaN|[+-]?Inf|[+-]?[0-9.eE+-]+)( [0-9]+)?$`)

// assertWellFormed fails if any line of a rendered snapshot is not a valid
// comment or sample line
func assertWellFormed(t *testing.T, rendered string) {
	t.Helper()

	for _, line := range strings.Split(rendered, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# HELP ") || strings.HasPrefix(line, "# TYPE ") {
			continue
		}
		if !metricLine.MatchString(line) {
			t.Errorf("Malformed exposition line: %q", line)
		}
	}
}

func TestRenderFirstCallIsWellFormed(t *testing.T) {
	reg := NewRegistry()

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rendered == "" {
		t.Fatal("Expected non-empty render output")
	}

	assertWellFormed(t, rendered)
}

func TestRenderIncludesDefaultCollectors(t *testing.T) {
	reg := NewRegistry()

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// The Go collector is available on every platform; process metrics may be
	// platform-dependent, so only require one of the two families
	if !strings.Contains(rendered, "go_goroutines") &&
		!strings.Contains(rendered, "process_resident_memory_bytes") {
		t.Error("Expected default collector metrics in render output")
	}
}

func TestRenderProcessMemoryNonNegative(t *testing.T) {
	reg := NewRegistry()

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, "process_resident_memory_bytes ") {
			value := strings.TrimPrefix(line, "process_resident_memory_bytes ")
			if strings.HasPrefix(value, "-") {
				t.Errorf("Expected non-negative resident memory, got %q", value)
			}
			return
		}
	}
	// Metric omitted on platforms without procfs support; that is the
	// documented fallback, not a failure
	t.Log("process_resident_memory_bytes not available on this platform")
}

func TestRegisterDuplicateFails(t *testing.T) {
	reg := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demo_total",
		Help: "A demo counter",
	})
	if err := reg.Register(counter); err != nil {
		t.Fatalf("Expected first registration to succeed, got %v", err)
	}

	duplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demo_total",
		Help: "A demo counter",
	})
	err := reg.Register(duplicate)
	if err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
	if !errors.Is(err, ErrDuplicateMetric) {
		t.Errorf("Expected ErrDuplicateMetric, got %v", err)
	}
}

func TestRegisteredMetricRendersExactlyOnce(t *testing.T) {
	reg := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_value",
		Help: "A demo gauge",
	})
	if err := reg.Register(gauge); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	gauge.Set(42)

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	count := 0
	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, "demo_value ") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one demo_value sample, got %d", count)
	}
	if !strings.Contains(rendered, "demo_value 42") {
		t.Error("Expected demo_value 42 in render output")
	}
}

func TestUninitializedCounterRendersZero(t *testing.T) {
	reg := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "untouched_total",
		Help: "Never incremented",
	})
	if err := reg.Register(counter); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(rendered, "untouched_total 0") {
		t.Error("Expected untouched counter to render as 0")
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "once_only",
		Help: "Registered twice",
	})
	reg.MustRegister(gauge)

	defer func() {
		if recover() == nil {
			t.Error("Expected MustRegister to panic on duplicate")
		}
	}()

	duplicate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "once_only",
		Help: "Registered twice",
	})
	reg.MustRegister(duplicate)
}

func TestContentType(t *testing.T) {
	if !strings.Contains(ContentType, "version=0.0.4") {
		t.Errorf("Expected exposition content type version 0.0.4, got %q", ContentType)
	}
	if !strings.HasPrefix(ContentType, "text/plain") {
		t.Errorf("Expected text/plain content type, got %q", ContentType)
	}
}

// TestConcurrentRenderAndUpdates verifies that renders under concurrent value
// updates never produce interleaved or partial lines
func TestConcurrentRenderAndUpdates(t *testing.T) {
	reg := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stress_total",
		Help: "Stress test counter",
	})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stress_value",
		Help: "Stress test gauge",
	})
	reg.MustRegister(counter, gauge)

	const (
		writers    = 8
		renderers  = 8
		iterations = 200
	)

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				counter.Inc()
				gauge.Set(float64(j))
			}
		}()
	}

	rendersCh := make(chan string, renderers*iterations/10)
	for i := 0; i < renderers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations/10; j++ {
				rendered, err := reg.Render()
				if err != nil {
					t.Errorf("Render failed under concurrency: %v", err)
					return
				}
				rendersCh <- rendered
			}
		}()
	}

	wg.Wait()
	close(rendersCh)

	for rendered := range rendersCh {
		assertWellFormed(t, rendered)
	}
}

func TestNewHTTPMetrics(t *testing.T) {
	reg := NewRegistry()

	m, err := NewHTTPMetrics(reg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	m.RequestTotals.WithLabelValues("GET", "/", "200").Inc()
	m.RequestInFlight.Set(1)

	rendered, err := reg.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(rendered, `http_request_total{method="GET",path="/",status="200"} 1`) {
		t.Error("Expected labeled request counter in render output")
	}
	if !strings.Contains(rendered, "http_request_in_flight 1") {
		t.Error("Expected in-flight gauge in render output")
	}

	// A second instrumentation set on the same registry must collide
	if _, err := NewHTTPMetrics(reg); !errors.Is(err, ErrDuplicateMetric) {
		t.Errorf("Expected ErrDuplicateMetric for second HTTP metrics set, got %v", err)
	}
}
