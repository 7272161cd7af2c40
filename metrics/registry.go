// Package metrics provides the metric registry and Prometheus collectors for the service.
// A Registry wraps a dedicated prometheus.Registry pre-loaded with the standard
// process and Go runtime collectors, and knows how to render its current state
// in the text exposition format. Registries are constructed explicitly and passed
// to consumers; nothing in this package touches the Prometheus default registry.
package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the exposition content type served on /metrics
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// ErrDuplicateMetric is returned when a collector with an already-registered
// name is registered a second time. During startup wiring this is a programmer
// error and callers treat it as fatal.
var ErrDuplicateMetric = errors.New("metric already registered")

// Registry holds the process-wide metric set
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates a registry pre-loaded with the default collector set:
// process metrics (CPU seconds, resident memory, open fds, start time) and the
// Go runtime collector. Process metrics that the platform cannot supply are
// omitted by the collector rather than reported as errors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	return &Registry{reg: reg}
}

// Register adds a collector to the registry. Registering a collector whose
// metric names collide with an existing one fails with ErrDuplicateMetric.
func (r *Registry) Register(c prometheus.Collector) error {
	if err := r.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("%w: %v", ErrDuplicateMetric, err)
		}
		return err
	}
	return nil
}

// MustRegister registers collectors and panics on failure. Only intended for
// startup wiring, where a duplicate name must abort the process.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Render gathers all registered metrics and encodes them in the text
// exposition format. Collectors sample synchronously during the gather, so the
// snapshot reflects values at call time; each metric value is read atomically
// but no consistency is promised across metrics.
func (r *Registry) Render() (string, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encoding metric family %q: %w", mf.GetName(), err)
		}
	}

	return buf.String(), nil
}

// Gatherer exposes the underlying prometheus.Gatherer, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns a scrape handler backed by this registry. The server uses
// Render directly; the handler exists for embedders that prefer promhttp.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
