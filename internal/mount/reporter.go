// Package mount orchestrates one end-to-end recovery session: opening a
// volume's MFT, running the scanner pool and index builder concurrently,
// reporting progress, and finally handing the finished index off to a
// vfshandler.Handler to be served at a drive letter (spec §4.5, §4.6).
package mount

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot is one progress report (spec §4.6 "Progress Reporter").
type Snapshot struct {
	Processed uint64
	Total     uint64
	Found     uint64
	ETA       time.Duration
	Done      bool
	Aborted   bool
}

// ReportInterval is how often the Reporter samples the atomic counters
// (spec §4.6 "250ms ticker").
const ReportInterval = 250 * time.Millisecond

// Reporter periodically samples Processed/Found counters being updated
// by the scanner pool and index builder, computes a linear-extrapolation
// ETA, and pushes Snapshots to Events until Stop is called.
type Reporter struct {
	Processed *atomic.Uint64
	Found     *atomic.Uint64
	Total     uint64
	Events    chan<- Snapshot
	Log       *logrus.Logger

	startedAt time.Time
	stop      chan struct{}
}

// NewReporter returns a Reporter publishing to events.
func NewReporter(processed, found *atomic.Uint64, total uint64, events chan<- Snapshot, log *logrus.Logger) *Reporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{Processed: processed, Found: found, Total: total, Events: events, Log: log, stop: make(chan struct{})}
}

// Run blocks, emitting a Snapshot every ReportInterval, until Stop is
// called or done fires. The final snapshot always has Done (or Aborted)
// set, matching the original tool's terminal "scan completed"/"aborted"
// state transition.
func (r *Reporter) Run(done <-chan bool) {
	r.startedAt = time.Now()
	ticker := time.NewTicker(ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.emit(true, true)
			return
		case aborted := <-done:
			r.emit(true, aborted)
			return
		case <-ticker.C:
			r.emit(false, false)
		}
	}
}

// Stop requests the reporter terminate with an aborted final snapshot.
func (r *Reporter) Stop() {
	close(r.stop)
}

func (r *Reporter) emit(done, aborted bool) {
	processed := r.Processed.Load()
	found := uint64(0)
	if r.Found != nil {
		found = r.Found.Load()
	}

	snap := Snapshot{Processed: processed, Total: r.Total, Found: found, Done: done, Aborted: aborted}
	if !done && processed > 0 && r.Total > processed {
		elapsed := time.Since(r.startedAt)
		rate := float64(elapsed) / float64(processed)
		remaining := r.Total - processed
		snap.ETA = time.Duration(rate * float64(remaining))
	}

	select {
	case r.Events <- snap:
	default:
		r.Log.Warn("mount: progress event dropped, receiver not keeping up")
	}
}
