package mount

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ununlink/ununlink/internal/mft"
	"github.com/ununlink/ununlink/internal/mfttest"
	"github.com/ununlink/ununlink/internal/vfshandler"
)

type fakeMounter struct {
	mounted   bool
	unmounted bool
	handler   *vfshandler.Handler
}

func (f *fakeMounter) Mount(driveLetter string, handler *vfshandler.Handler) error {
	f.mounted = true
	f.handler = handler
	return nil
}

func (f *fakeMounter) Unmount() error {
	f.unmounted = true
	return nil
}

func TestSessionRunMountsAndUnmountsOnCancel(t *testing.T) {
	records := make([]mfttest.Entry, mft.FirstNormalRecord, mft.FirstNormalRecord+1)
	for i := range records {
		records[i] = mfttest.Entry{InUse: true} // reserved metadata-file records
	}
	records = append(records, mfttest.Entry{InUse: false, Path: `\deleted.txt`, PathOK: true, Size: 3})
	fake := &mfttest.Fake{Records: records}
	mounter := &fakeMounter{}
	s := &Session{
		DriveLetter: "C:",
		Open:        func(string) (mft.Reader, error) { return fake, nil },
		Mount:       mounter,
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return mounter.mounted }, time.Second, time.Millisecond)
	cancel()

	err := <-errCh
	assert.NoError(t, err)
	assert.True(t, mounter.unmounted)
	assert.NotNil(t, mounter.handler)
}

func TestSessionRunRejectsDoubleStart(t *testing.T) {
	fake := &mfttest.Fake{}
	mounter := &fakeMounter{}
	s := &Session{
		DriveLetter: "C:",
		Open:        func(string) (mft.Reader, error) { return fake, nil },
		Mount:       mounter,
	}
	s.mounted.Store(true)

	err := s.Run(context.Background())
	assert.Error(t, err)
}
