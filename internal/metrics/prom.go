// Package metrics adapts lifecycle observations to Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"agentd/internal/lifecycle"
)

// LifecycleCollector implements lifecycle.Metrics on top of Prometheus.
type LifecycleCollector struct {
	loadsStarted   *prometheus.CounterVec
	loadsSucceeded *prometheus.CounterVec
	loadsFailed    *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	evictions      *prometheus.CounterVec
	residentCount  prometheus.Gauge
	residentEstMB  prometheus.Gauge
}

// NewLifecycleCollector builds the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewLifecycleCollector(reg prometheus.Registerer) *LifecycleCollector {
	c := &LifecycleCollector{
		loadsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "loads_started_total",
			Help:      "Component loads started",
		}, []string{"component"}),
		loadsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "loads_succeeded_total",
			Help:      "Component loads that produced an instance",
		}, []string{"component"}),
		loadsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "loads_failed_total",
			Help:      "Component loads that failed",
		}, []string{"component"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "load_duration_seconds",
			Help:      "Duration of component loads in seconds",
			Buckets:   []float64{.05, .25, 1, 5, 15, 60, 300},
		}, []string{"component"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "evictions_total",
			Help:      "Component evictions by reason",
		}, []string{"component", "reason"}),
		residentCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "resident_components",
			Help:      "Currently loaded components",
		}),
		residentEstMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentd",
			Subsystem: "lifecycle",
			Name:      "resident_est_memory_mb",
			Help:      "Summed advisory memory estimate of loaded components",
		}),
	}
	reg.MustRegister(
		c.loadsStarted, c.loadsSucceeded, c.loadsFailed,
		c.loadDuration, c.evictions, c.residentCount, c.residentEstMB,
	)
	return c
}

func (c *LifecycleCollector) LoadStarted(name string) {
	c.loadsStarted.WithLabelValues(name).Inc()
}

func (c *LifecycleCollector) LoadSucceeded(name string, dur time.Duration) {
	c.loadsSucceeded.WithLabelValues(name).Inc()
	c.loadDuration.WithLabelValues(name).Observe(dur.Seconds())
}

func (c *LifecycleCollector) LoadFailed(name string) {
	c.loadsFailed.WithLabelValues(name).Inc()
}

func (c *LifecycleCollector) Evicted(name string, reason lifecycle.EvictReason) {
	c.evictions.WithLabelValues(name, string(reason)).Inc()
}

func (c *LifecycleCollector) Resident(count int, estMemoryMB int) {
	c.residentCount.Set(float64(count))
	c.residentEstMB.Set(float64(estMemoryMB))
}

var _ lifecycle.Metrics = (*LifecycleCollector)(nil)
