// Package scanner drives a pool of workers that walk a volume's MFT
// record range and emit a Candidate for every unused record that looks
// recoverable (spec §4.2). Each worker owns a contiguous span of record
// numbers and a private internal/mft.Cache; only the shared mft.Reader
// and a RWMutex around it are shared state.
package scanner

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ununlink/ununlink/internal/candidate"
	"github.com/ununlink/ununlink/internal/mft"
)

// ThreadsEnvVar overrides the computed worker count when set to a
// positive integer (spec §4.2 "Thread count").
const ThreadsEnvVar = "UNUNLINK_SCAN_THREADS"

// Pool scans a volume's MFT in parallel and publishes Candidates on a
// single shared channel for the index builder to drain.
type Pool struct {
	Reader    mft.Reader
	Workers   int
	Start     uint64 // first record scanned; defaults to mft.FirstNormalRecord
	Processed *atomic.Uint64

	mu  sync.RWMutex // guards Reader reads, mirroring the teacher's fd-mutex pattern in fs/files.go
	log *logrus.Logger
}

// New returns a Pool sized by WorkerCount, scanning from
// mft.FirstNormalRecord by default, unless overridden by the caller
// after construction.
func New(reader mft.Reader, processed *atomic.Uint64, log *logrus.Logger) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{
		Reader:    reader,
		Workers:   WorkerCount(),
		Start:     uint64(mft.FirstNormalRecord),
		Processed: processed,
		log:       log,
	}
}

// WorkerCount computes round(0.7 * NumCPU), floored at 2, unless
// ThreadsEnvVar names a positive override (spec §4.2 "Thread count").
func WorkerCount() int {
	if v := os.Getenv(ThreadsEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := int(0.7*float64(runtime.NumCPU()) + 0.5)
	if n < 2 {
		n = 2
	}
	return n
}

// span is one worker's contiguous, half-open record range [Start, End).
type span struct {
	Start, End uint64
}

// partition splits [0, total) into n contiguous, roughly equal spans.
func partition(total uint64, n int) []span {
	if n < 1 {
		n = 1
	}
	spans := make([]span, 0, n)
	chunk := total / uint64(n)
	rem := total % uint64(n)
	var cursor uint64
	for i := 0; i < n; i++ {
		size := chunk
		if uint64(i) < rem {
			size++
		}
		if size == 0 {
			continue
		}
		spans = append(spans, span{Start: cursor, End: cursor + size})
		cursor += size
	}
	return spans
}

// Run scans every span concurrently and closes out when finished or ctx
// is cancelled. The returned channel is bounded, with a buffer of 1<<16
// candidates; when it is full, a worker blocks until the indexer drains
// it or ctx is cancelled (spec §4.2 "MPSC channel").
func (p *Pool) Run(ctx context.Context) <-chan candidate.Candidate {
	out := make(chan candidate.Candidate, 1<<16)
	max := p.Reader.MaxRecord()
	start := p.Start
	if start > max {
		start = max
	}
	spans := partition(max-start, p.Workers)
	for i := range spans {
		spans[i].Start += start
		spans[i].End += start
	}

	go func() {
		defer close(out)
		g, gctx := errgroup.WithContext(ctx)
		for _, s := range spans {
			s := s
			g.Go(func() error {
				p.scanSpan(gctx, s, out)
				return nil
			})
		}
		_ = g.Wait()
		p.log.WithField("max_record", max).Debug("scanner: all spans complete")
	}()

	return out
}

func (p *Pool) scanSpan(ctx context.Context, s span, out chan<- candidate.Candidate) {
	cache := mft.NewCache()
	for n := s.Start; n < s.End; n++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.mu.RLock()
		rec, ok := p.Reader.GetRecord(n)
		p.mu.RUnlock()
		if p.Processed != nil {
			p.Processed.Add(1)
		}
		if !ok || rec.InUse {
			continue
		}

		c, emit := p.toCandidate(rec, cache)
		if !emit {
			continue
		}
		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
	}
}

// toCandidate reconstructs rec's path (falling back to a basename-only
// result when the parent chain is broken) and turns it into a
// Candidate. Whether the path was fully reconstructed or not is not
// tracked here: index.Builder re-derives that from the path shape (a
// bare name with no separator), so the two packages don't need to agree
// on a second boolean in the wire format.
func (p *Pool) toCandidate(rec mft.Record, cache *mft.Cache) (candidate.Candidate, bool) {
	var path string
	if pr, ok := p.Reader.(mft.PathReconstructor); ok {
		path, _ = pr.Path(rec, cache)
	}
	if path == "" {
		return candidate.Candidate{}, false
	}

	return candidate.Candidate{
		MFTNumber: rec.Number,
		Path:      path,
		Size:      rec.Size,
		IsDir:     rec.IsDir,
		Created:   rec.Created,
		Modified:  rec.Modified,
		Accessed:  rec.Accessed,
	}, true
}
