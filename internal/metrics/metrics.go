// Package metrics counts what one calendar run did and exports the counts as
// a Prometheus textfile for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "colloq"

// Run holds the collectors for one source. Each Run owns its registry so
// repeated runs in one process (watch mode) never collide on registration.
type Run struct {
	registry *prometheus.Registry

	listings    prometheus.Counter
	events      prometheus.Counter
	duplicates  prometheus.Counter
	filtered    prometheus.Counter
	failures    *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewRun creates the collectors, labeled with the source name
func NewRun(source string) *Run {
	labels := prometheus.Labels{"source": source}
	r := &Run{
		registry: prometheus.NewRegistry(),
		listings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "listings_total",
			Help:        "Listings scraped from the source",
			ConstLabels: labels,
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_total",
			Help:        "Events added to the calendar",
			ConstLabels: labels,
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "duplicates_total",
			Help:        "Listings dropped because their key was already seen",
			ConstLabels: labels,
		}),
		filtered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "filtered_total",
			Help:        "Listings dropped as placeholders",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "failures_total",
			Help:        "Failed runs by error kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "run_duration_seconds",
			Help:        "Wall time of the last run",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix timestamp of the last successful run",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.listings, r.events, r.duplicates, r.filtered,
		r.failures, r.duration, r.lastSuccess)
	return r
}

func (r *Run) Listing()   { r.listings.Inc() }
func (r *Run) Event()     { r.events.Inc() }
func (r *Run) Duplicate() { r.duplicates.Inc() }
func (r *Run) Filtered()  { r.filtered.Inc() }

// Failed records a failed run under kind ("fetch", "structure", ...)
func (r *Run) Failed(kind string, elapsed time.Duration) {
	r.failures.WithLabelValues(kind).Inc()
	r.duration.Set(elapsed.Seconds())
}

// Succeeded records the run time and the completion timestamp
func (r *Run) Succeeded(at time.Time, elapsed time.Duration) {
	r.duration.Set(elapsed.Seconds())
	r.lastSuccess.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes all collectors to path in the text exposition format.
// The file is replaced atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
