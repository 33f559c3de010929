package conservheap

import (
	"sync"
	"unsafe"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MetricsSink receives a GCStats record after every completed
// collection cycle. conservheap/metrics implements this interface to
// feed a prometheus.Collector; it is defined here, not in the metrics
// package, so this package has no dependency on Prometheus itself.
type MetricsSink interface {
	ObserveGC(GCStats)
}

// Heap is the aggregate root: configured segment size, a mutex and
// condition variable serializing every state-mutating operation, the
// segment list, the free list, the allocated-bytes counter, the root
// registry, the thread registry, and the GC-requested flag.
//
// The heap exclusively owns all segments, block headers, the root
// slice, and thread records. Payload bytes are shared by reference
// with the client, but the block containing them remains owned by the
// heap until it is swept or explicitly freed.
type Heap struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg    Config
	logger *logrus.Entry
	id     uuid.UUID

	segHead      *segment
	segmentCount uint64

	freeHead       *blockHeader
	allocatedBytes uintptr

	roots []unsafe.Pointer

	threads map[int64]*threadRecord

	gcRequested bool
	gcCycles    uint64
	lastGC      GCStats

	metricsSink MetricsSink
}

// New creates a heap with one initial segment. Failure at any step
// unwinds fully: New never returns a partially initialized Heap.
func New(cfg Config) (*Heap, error) {
	if cfg.SegmentSize == 0 {
		cfg.SegmentSize = NewDefaultConfig().SegmentSize
	}
	if err := cfg.Verify(); err != nil {
		return nil, pkgerrors.Wrap(err, "conservheap: new")
	}

	h := &Heap{
		cfg:     cfg,
		id:      uuid.New(),
		threads: make(map[int64]*threadRecord),
	}
	h.cond = sync.NewCond(&h.mu)
	h.logger = cfg.logger().WithField("heap_id", h.id.String())

	h.mu.Lock()
	blk := h.growSegment()
	h.mu.Unlock()
	if blk == nil {
		return nil, pkgerrors.Wrap(ErrOutOfMemory, "conservheap: new: initial segment allocation failed")
	}

	return h, nil
}

// ID returns the heap's unique instance id, used to disambiguate
// multiple heaps in one process's logs and metrics.
func (h *Heap) ID() uuid.UUID {
	return h.id
}

// SetMetricsSink wires a MetricsSink (conservheap/metrics.Collector)
// into the heap so every Collect call reports its GCStats.
func (h *Heap) SetMetricsSink(sink MetricsSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metricsSink = sink
}

func (h *Heap) notifyMetrics(stats GCStats) {
	h.mu.Lock()
	sink := h.metricsSink
	h.mu.Unlock()
	if sink != nil {
		sink.ObserveGC(stats)
	}
}

// AllocatedBytes returns the sum of the sizes of every non-FREE block.
func (h *Heap) AllocatedBytes() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocatedBytes
}

// SegmentCount returns the number of segments the heap has grown to.
func (h *Heap) SegmentCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.segmentCount
}

// Close destroys the heap: it drops every reference to its segments,
// its free list, its root registry and its thread records under the
// lock, then returns. Unlike a manual malloc/free heap, the raw memory
// itself isn't explicitly released here — once unreferenced, Go's own
// garbage collector reclaims the backing arrays. No mark-sweep cycle
// runs as part of Close.
//
// Close does not wait for mutators to quiesce. Concurrent use of a
// heap during Close is undefined.
func (h *Heap) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.segHead = nil
	h.segmentCount = 0
	h.freeHead = nil
	h.allocatedBytes = 0
	h.roots = nil
	h.threads = nil
}
