package mount

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ununlink/ununlink/internal/index"
	"github.com/ununlink/ununlink/internal/mft"
	"github.com/ununlink/ununlink/internal/scanner"
	"github.com/ununlink/ununlink/internal/vfshandler"
)

// Mounter is implemented by a host binding (internal/cgofuseadapter) that
// can actually present a vfshandler.Handler to the OS at a drive letter.
// Keeping it as a narrow interface here, rather than importing the
// adapter directly, lets Session be exercised in tests on any platform.
type Mounter interface {
	Mount(driveLetter string, handler *vfshandler.Handler) error
	Unmount() error
}

// Opener produces an mft.Reader over a volume's raw, read-only device,
// given a drive letter like "C:".
type Opener func(driveLetter string) (mft.Reader, error)

// Session runs exactly one scan-then-mount lifecycle. A Session must
// not be reused after Run returns; the "take-unique-or-panic" handoff
// (spec §9) means its index is only ever owned by one handler.
type Session struct {
	DriveLetter string
	Open        Opener
	Mount       Mounter
	Log         *logrus.Logger

	mounted atomic.Bool

	Processed atomic.Uint64
	Found     atomic.Uint64
	Events    chan Snapshot
}

// errAlreadyMounted is returned by Run if called twice on one Session.
var errAlreadyMounted = fmt.Errorf("mount: session already started")

// MountPoint is the fixed drive letter the recovered tree is served at.
const MountPoint = "R:"

// Run performs the full pipeline: open the volume, scan it
// concurrently while building the index, report progress, then hand
// the finished index to a vfshandler.Handler and mount it at
// MountPoint. It blocks until ctx is cancelled, then unmounts.
func (s *Session) Run(ctx context.Context) error {
	if !s.mounted.CompareAndSwap(false, true) {
		return errAlreadyMounted
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	if s.Events == nil {
		s.Events = make(chan Snapshot, 64)
	}

	reader, err := s.Open(s.DriveLetter)
	if err != nil {
		return fmt.Errorf("mount: opening %s: %w", s.DriveLetter, err)
	}

	pool := scanner.New(reader, &s.Processed, s.Log)
	builder := index.NewBuilder(&s.Found, s.Log)

	scanCtx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()

	candidates := pool.Run(scanCtx)

	var idx *index.DeletedIndex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		idx = builder.Run(candidates)
	}()

	totalRecords := reader.MaxRecord()
	if totalRecords > uint64(mft.FirstNormalRecord) {
		totalRecords -= uint64(mft.FirstNormalRecord)
	} else {
		totalRecords = 0
	}

	done := make(chan bool, 1)
	reporter := NewReporter(&s.Processed, &s.Found, totalRecords, s.Events, s.Log)
	go reporter.Run(done)

	wg.Wait()
	aborted := ctx.Err() != nil
	done <- aborted

	if aborted {
		return ctx.Err()
	}

	handler := vfshandler.New(idx, reader, s.Log)
	if err := s.Mount.Mount(MountPoint, handler); err != nil {
		return fmt.Errorf("mount: mounting %s: %w", MountPoint, err)
	}
	handler.Mounted()

	<-ctx.Done()
	handler.Unmounted()
	return s.Mount.Unmount()
}
