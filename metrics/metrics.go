// Package metrics exposes a conservheap.Heap as a prometheus.Collector,
// following the one-collector-per-subsystem style moby-moby's daemon
// uses for its own subsystems (network, volumes, builder) rather than
// registering loose global gauges.
package metrics

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/conservheap/conservheap"
)

// heapStatter is the subset of *conservheap.Heap the collector needs.
// Defined as an interface purely to keep this package's tests able to
// supply a fake without constructing a real heap.
type heapStatter interface {
	ID() uuid.UUID
	Stats() conservheap.BlockStats
	SegmentCount() uint64
}

// Collector reports a heap's allocator bookkeeping as Prometheus
// gauges and its GC cycle history as counters and a histogram,
// labeled by the heap's instance id so a process embedding multiple
// heaps can tell them apart.
type Collector struct {
	heap heapStatter

	allocatedBytes *prometheus.Desc
	segmentCount   *prometheus.Desc
	freeBlocks     *prometheus.Desc

	gcCyclesTotal prometheus.Counter
	gcPause       prometheus.Histogram
}

// NewCollector builds a Collector for h and wires it as h's
// MetricsSink so every Collect call feeds gcCyclesTotal/gcPause.
func NewCollector(h *conservheap.Heap) *Collector {
	id := h.ID().String()

	c := &Collector{
		heap: h,
		allocatedBytes: prometheus.NewDesc(
			"conservheap_allocated_bytes",
			"Sum of the sizes of all non-free blocks.",
			nil, prometheus.Labels{"heap_id": id},
		),
		segmentCount: prometheus.NewDesc(
			"conservheap_segment_count",
			"Number of segments the heap has grown to.",
			nil, prometheus.Labels{"heap_id": id},
		),
		freeBlocks: prometheus.NewDesc(
			"conservheap_free_blocks",
			"Number of blocks currently on the free list.",
			nil, prometheus.Labels{"heap_id": id},
		),
		gcCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "conservheap_gc_cycles_total",
			Help:        "Total number of completed collection cycles.",
			ConstLabels: prometheus.Labels{"heap_id": id},
		}),
		gcPause: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "conservheap_gc_pause_seconds",
			Help:        "Duration of each stop-the-world collection cycle.",
			ConstLabels: prometheus.Labels{"heap_id": id},
			Buckets:     prometheus.DefBuckets,
		}),
	}
	h.SetMetricsSink(c)
	return c
}

// ObserveGC implements conservheap.MetricsSink.
func (c *Collector) ObserveGC(stats conservheap.GCStats) {
	c.gcCyclesTotal.Inc()
	c.gcPause.Observe(stats.Duration.Seconds())
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocatedBytes
	ch <- c.segmentCount
	ch <- c.freeBlocks
	c.gcCyclesTotal.Describe(ch)
	c.gcPause.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.heap.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocatedBytes, prometheus.GaugeValue, float64(stats.AllocatedBytes))
	ch <- prometheus.MustNewConstMetric(c.segmentCount, prometheus.GaugeValue, float64(stats.SegmentCount))
	ch <- prometheus.MustNewConstMetric(c.freeBlocks, prometheus.GaugeValue, float64(stats.FreeBlocks))
	c.gcCyclesTotal.Collect(ch)
	c.gcPause.Collect(ch)
}
