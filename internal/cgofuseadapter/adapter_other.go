//go:build !windows && !darwin

package cgofuseadapter

import (
	"errors"

	"github.com/ununlink/ununlink/internal/vfshandler"
)

// Adapter is a non-functional stand-in on platforms cgofuse/WinFSP
// don't cover. It keeps internal/mount and cmd/ununlink buildable
// everywhere; Mount always fails with a clear message instead of
// silently doing nothing.
type Adapter struct{}

// New returns a stub Adapter.
func New() *Adapter { return &Adapter{} }

// Mount implements mount.Mounter.
func (a *Adapter) Mount(driveLetter string, handler *vfshandler.Handler) error {
	return errors.New("cgofuseadapter: mounting a drive letter is only supported on windows and darwin")
}

// Unmount implements mount.Mounter.
func (a *Adapter) Unmount() error { return nil }
