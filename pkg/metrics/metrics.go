// Package metrics exposes prometheus collectors for the stock lifecycle engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector holds the engine's metrics on a private registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	batchesCreated   prometheus.Counter
	allocations      prometheus.Counter
	allocatedKg      prometheus.Counter
	shortfalls       prometheus.Counter
	shortfallKg      prometheus.Counter
	deletes          *prometheus.CounterVec
	deletesBlocked   *prometheus.CounterVec
	unitOfWorkFailed *prometheus.CounterVec
	batchesByExpiry  *prometheus.GaugeVec
}

// New creates a collector. namespace prefixes every metric name.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		batchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "batches_created_total",
			Help:      "Batches created together with their stock and crop rows.",
		}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "allocations_total",
			Help:      "Batch-to-purchase allocation rows written.",
		}),
		allocatedKg: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "allocated_kg_total",
			Help:      "Kilograms allocated to purchases.",
		}),
		shortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "allocation_shortfalls_total",
			Help:      "Allocation requests that could not be covered by existing batches.",
		}),
		shortfallKg: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "allocation_shortfall_kg_total",
			Help:      "Requested kilograms left without a backing batch.",
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "deletes_total",
			Help:      "Guarded deletes that went through.",
		}, []string{"kind"}),
		deletesBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "deletes_blocked_total",
			Help:      "Deletes refused because live records still reference the entity.",
		}, []string{"kind"}),
		unitOfWorkFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "unit_of_work_failures_total",
			Help:      "Units of work that were rolled back.",
		}, []string{"operation"}),
		batchesByExpiry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "batches",
			Help:      "Batches per expiry status as of the last dashboard computation.",
		}, []string{"expiry_status"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.batchesCreated,
		c.allocations,
		c.allocatedKg,
		c.shortfalls,
		c.shortfallKg,
		c.deletes,
		c.deletesBlocked,
		c.unitOfWorkFailed,
		c.batchesByExpiry,
	)

	return c
}

// Handler serves the registry in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// BatchCreated counts one created batch
func (c *Collector) BatchCreated() {
	if c == nil {
		return
	}
	c.batchesCreated.Inc()
}

// Allocated records the outcome of one allocation run
func (c *Collector) Allocated(rows int, allocated, shortfall decimal.Decimal) {
	if c == nil {
		return
	}
	c.allocations.Add(float64(rows))
	c.allocatedKg.Add(allocated.InexactFloat64())
	if shortfall.IsPositive() {
		c.shortfalls.Inc()
		c.shortfallKg.Add(shortfall.InexactFloat64())
	}
}

// Deleted counts a guarded delete of kind
func (c *Collector) Deleted(kind string) {
	if c == nil {
		return
	}
	c.deletes.WithLabelValues(kind).Inc()
}

// DeleteBlocked counts a refused delete of kind
func (c *Collector) DeleteBlocked(kind string) {
	if c == nil {
		return
	}
	c.deletesBlocked.WithLabelValues(kind).Inc()
}

// UnitOfWorkFailed counts a rolled back unit of work
func (c *Collector) UnitOfWorkFailed(operation string) {
	if c == nil {
		return
	}
	c.unitOfWorkFailed.WithLabelValues(operation).Inc()
}

// SetExpiryCounts publishes the per-status batch counts
func (c *Collector) SetExpiryCounts(counts map[string]int) {
	if c == nil {
		return
	}
	for status, n := range counts {
		c.batchesByExpiry.WithLabelValues(status).Set(float64(n))
	}
}
