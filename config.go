package conservheap

import (
	"io"

	"github.com/inhies/go-bytesize"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// defaultSegmentSize is used by NewDefaultConfig and matches the
// "reasonable default" the demo commands and tests build on.
const defaultSegmentSize = 1 << 20 // 1 MiB, bytesize.MB equivalent

// Config holds the tunables a client passes to New: a flat,
// independently-validatable struct consumed once at construction time.
type Config struct {
	// SegmentSize is the size of every segment the heap grows by. It is
	// expressed in github.com/inhies/go-bytesize units so callers can
	// write human sizes ("64KiB", "1MiB") instead of raw byte counts.
	SegmentSize bytesize.ByteSize

	// GCThresholdBytes is the allocated-bytes watermark that, if
	// non-zero, triggers an automatic Collect at the end of the
	// Allocate call that crosses it. Zero (the default) disables
	// automatic collection entirely.
	GCThresholdBytes bytesize.ByteSize

	// Logger receives structured events for segment growth and GC
	// cycles. A nil Logger gets a discard-output logrus.Logger so the
	// heap stays silent unless the embedder wires one in.
	Logger *logrus.Logger
}

// NewDefaultConfig returns a Config with a 1 MiB segment size and no
// automatic collection.
func NewDefaultConfig() Config {
	return Config{
		SegmentSize:      bytesize.ByteSize(defaultSegmentSize),
		GCThresholdBytes: 0,
	}
}

// ParseSegmentSize parses a human-readable size string ("1MiB",
// "64KiB", "512B") into byte count.
func ParseSegmentSize(s string) (bytesize.ByteSize, error) {
	bs, err := bytesize.Parse(s)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "conservheap: parse segment size")
	}
	return bs, nil
}

// Verify validates the configuration, raising an error if it cannot be
// used to build a heap.
func (c *Config) Verify() error {
	if c.SegmentSize <= 0 {
		return pkgerrors.Wrap(ErrInvalidConfig, "segment size must be > 0")
	}
	if uintptr(c.SegmentSize) <= headerSize {
		return pkgerrors.Wrapf(ErrInvalidConfig, "segment size %s too small to hold even one header", c.SegmentSize)
	}
	if c.GCThresholdBytes < 0 {
		return pkgerrors.Wrap(ErrInvalidConfig, "gc threshold must be >= 0")
	}
	return nil
}

func (c *Config) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
