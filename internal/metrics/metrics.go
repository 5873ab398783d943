// Package metrics exposes normalized daemon stats as Prometheus gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"vici-telegraf-plugin/internal/vici"
)

const namespace = "strongswan"

// Exporter holds the gauges of one daemon on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	workers        *prometheus.GaugeVec
	workersActive  *prometheus.GaugeVec
	queued         *prometheus.GaugeVec
	queuedTotal    prometheus.Gauge
	scheduled      prometheus.Gauge
	ikeSas         prometheus.Gauge
	ikeSasHalfOpen prometheus.Gauge
	memory         *prometheus.GaugeVec
	runningSince   prometheus.Gauge
	plugins        prometheus.Gauge
}

// New creates an exporter and registers its gauges.
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers",
				Help:      "Worker threads by state.",
			},
			[]string{"state"},
		),
		workersActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers_active",
				Help:      "Worker threads busy with a job, by job priority.",
			},
			[]string{"priority"},
		),
		queued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queued",
				Help:      "Jobs waiting for a worker, by job priority.",
			},
			[]string{"priority"},
		),
		queuedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_total",
			Help:      "Jobs waiting for a worker.",
		}),
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled",
			Help:      "Jobs scheduled for later execution.",
		}),
		ikeSas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ikesas",
			Help:      "IKE_SAs known to the daemon.",
		}),
		ikeSasHalfOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ikesas_half_open",
			Help:      "IKE_SAs not yet established.",
		}),
		memory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_bytes",
				Help:      "Allocator statistics by kind (sbrk, mmap, used, free).",
			},
			[]string{"kind"},
		),
		runningSince: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_since_seconds",
			Help:      "Daemon start time as a unix timestamp.",
		}),
		plugins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins",
			Help:      "Loaded plugins.",
		}),
	}
	e.registry.MustRegister(
		e.workers,
		e.workersActive,
		e.queued,
		e.queuedTotal,
		e.scheduled,
		e.ikeSas,
		e.ikeSasHalfOpen,
		e.memory,
		e.runningSince,
		e.plugins,
	)
	return e
}

// Gatherer returns the registry holding the exporter's gauges.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// Update sets every gauge from stats. NaN counters become NaN samples.
func (e *Exporter) Update(stats *vici.Stats) {
	e.workers.WithLabelValues("total").Set(stats.Workers.Total.Float64())
	e.workers.WithLabelValues("running").Set(stats.Workers.Running.Float64())
	e.workers.WithLabelValues("idle").Set(stats.Workers.Idle.Float64())

	setPriorities(e.workersActive, stats.Workers.ActiveByPriority)
	setPriorities(e.queued, stats.QueuesByPriority)
	e.queuedTotal.Set(stats.Queues.Float64())

	e.scheduled.Set(stats.Scheduled.Float64())
	e.ikeSas.Set(stats.IkeSas.Float64())
	e.ikeSasHalfOpen.Set(stats.IkeSasHalfOpen.Float64())

	e.memory.WithLabelValues("sbrk").Set(stats.Memory.NonMappedSpace.Float64())
	e.memory.WithLabelValues("mmap").Set(stats.Memory.MappedSpace.Float64())
	e.memory.WithLabelValues("used").Set(stats.Memory.Used.Float64())
	e.memory.WithLabelValues("free").Set(stats.Memory.Free.Float64())

	if !stats.RunningSince.IsZero() {
		e.runningSince.Set(float64(stats.RunningSince.Unix()))
	}
	e.plugins.Set(float64(len(stats.Plugins)))
}

func setPriorities(g *prometheus.GaugeVec, p vici.ByPriority) {
	g.WithLabelValues("critical").Set(p.Critical.Float64())
	g.WithLabelValues("high").Set(p.High.Float64())
	g.WithLabelValues("medium").Set(p.Medium.Float64())
	g.WithLabelValues("low").Set(p.Low.Float64())
}

// WriteTextfile writes the current gauges in the text exposition format,
// for node_exporter's textfile collector. The file is replaced atomically.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
