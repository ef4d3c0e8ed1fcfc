package index

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ununlink/ununlink/internal/candidate"
	"github.com/ununlink/ununlink/internal/pathkey"
)

// DefaultFlushSize is the staging buffer size at which the Builder
// flushes candidates into the index without waiting for the receive
// timeout (spec §4.3 "Batching").
const DefaultFlushSize = 4096

// FlushInterval is the period of the Builder's ticker: on every tick a
// non-empty staging buffer is flushed even if it has not reached FlushAt.
const FlushInterval = 100 * time.Millisecond

// fakepathDir is the synthetic directory basename-only candidates are
// reparented under (spec §4.3 step 1, §8 scenario 4).
const fakepathDir = "fakepath"

// Builder consumes Candidates from a single channel and materializes a
// DeletedIndex. It is the sole writer of the index; spec §3 requires
// that the index is mutated only during scan, from one goroutine.
type Builder struct {
	Found   *atomic.Uint64
	FlushAt int
	Log     *logrus.Logger

	idx     *DeletedIndex
	staging []candidate.Candidate
}

// NewBuilder returns a Builder with its own empty DeletedIndex.
func NewBuilder(found *atomic.Uint64, log *logrus.Logger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{
		Found:   found,
		FlushAt: DefaultFlushSize,
		Log:     log,
		idx:     New(),
		staging: make([]candidate.Candidate, 0, DefaultFlushSize),
	}
}

// Run drains in until it is closed, batching candidates into staging and
// flushing on size or on each FlushInterval tick (spec §4.3 "Batching"). It
// returns the finished, read-only-from-here-on index.
func (b *Builder) Run(in <-chan candidate.Candidate) *DeletedIndex {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-in:
			if !ok {
				b.flush()
				b.Log.WithField("nodes", b.idx.Len()).Debug("indexer: channel closed, final flush")
				return b.idx
			}
			b.staging = append(b.staging, c)
			if len(b.staging) >= b.FlushAt {
				b.flush()
			}
		case <-ticker.C:
			if len(b.staging) > 0 {
				b.flush()
			}
		}
	}
}

func (b *Builder) flush() {
	if len(b.staging) == 0 {
		return
	}
	for _, c := range b.staging {
		b.apply(c)
		if b.Found != nil {
			b.Found.Add(1)
		}
	}
	b.staging = b.staging[:0]
}

// apply places one candidate in the index (spec §4.3 steps 1-4).
func (b *Builder) apply(c candidate.Candidate) {
	full := c.Path
	// Only a bare name with no separator at all lost its parent linkage;
	// a path like `\a.txt` is a file directly under the root.
	if pathkey.IsBasenameOnly(full) && !strings.ContainsAny(full, `\/`) {
		base := baseOfDisplay(pathkey.Display(full))
		if base != "" {
			full = pathkey.Separator + fakepathDir + pathkey.Separator + base
		}
	}

	if c.IsDir {
		b.idx.InsertDir(full)
		return
	}

	meta := EntryMeta{
		MFTNumber: c.MFTNumber,
		Size:      c.Size,
		Created:   c.Created,
		Modified:  c.Modified,
		Accessed:  c.Accessed,
	}
	b.idx.InsertFile(full, meta)
}
