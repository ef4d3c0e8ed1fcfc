//go:build windows || darwin

// Package cgofuseadapter presents a vfshandler.Handler to the OS at a
// drive letter (Windows, via WinFSP) or a mount point (Darwin, via
// FUSE-T/macFUSE) using github.com/winfsp/cgofuse. It implements exactly
// the read-only subset of fuse.FileSystemInterface the handler supports;
// everything else falls through to fuse.FileSystemBase's -ENOSYS
// defaults.
//
// This mirrors the shape of a real cgofuse-backed adapter (cleanPath
// normalization before every lookup, fh as an opaque per-open handle)
// rather than reinventing a binding from scratch.
package cgofuseadapter

import (
	"strings"
	"syscall"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/ununlink/ununlink/internal/vfshandler"
	"github.com/ununlink/ununlink/internal/vfsstatus"
)

// Adapter implements fuse.FileSystemInterface over a vfshandler.Handler
// and also satisfies internal/mount.Mounter. Every cgofuse file handle
// (fh) is the handle id vfshandler.Handler.CreateFile returned; the
// adapter keeps no handle table of its own.
type Adapter struct {
	fuse.FileSystemBase

	handler *vfshandler.Handler
	host    *fuse.FileSystem
}

// New returns an Adapter not yet backed by a handler; call Mount to
// attach one and start serving.
func New() *Adapter {
	return &Adapter{}
}

// Mount implements mount.Mounter: it attaches handler and starts serving
// at driveLetter (e.g. "R:" on Windows, a directory path on Darwin).
func (a *Adapter) Mount(driveLetter string, handler *vfshandler.Handler) error {
	a.handler = handler
	a.host = fuse.NewFileSystemHost(a)
	a.host.SetCapReaddirPlus(true)
	go a.host.Mount(driveLetter, nil)
	return nil
}

// Unmount implements mount.Mounter.
func (a *Adapter) Unmount() error {
	if a.host == nil {
		return nil
	}
	if !a.host.Unmount() {
		return errUnmountFailed
	}
	return nil
}

var errUnmountFailed = vfsstatus.New(vfsstatus.FatalOpen, "unmount failed")

func cleanPath(path string) string {
	if path == "" {
		return `\`
	}
	return strings.ReplaceAll(path, "/", `\`)
}

// Getattr implements fuse.FileSystemInterface.
func (a *Adapter) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	info, status := a.handler.GetFileInformation(cleanPath(path))
	if status != vfsstatus.Success {
		return -status.ToErrno()
	}
	fillStat(stat, info)
	return 0
}

// Opendir implements fuse.FileSystemInterface.
func (a *Adapter) Opendir(path string) (int, uint64) {
	fh, status := a.handler.CreateFile(cleanPath(path), vfshandler.DispositionOpen, vfshandler.CreateOptions{DirectoryFile: true})
	if status != vfsstatus.Success {
		return -status.ToErrno(), 0
	}
	return 0, fh
}

// Releasedir implements fuse.FileSystemInterface.
func (a *Adapter) Releasedir(path string, fh uint64) int {
	a.handler.Close(fh)
	return 0
}

// Readdir implements fuse.FileSystemInterface.
func (a *Adapter) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	entries, status := a.handler.FindFiles(fh, cleanPath(path))
	if status != vfsstatus.Success {
		return -status.ToErrno()
	}
	for _, e := range entries {
		var st fuse.Stat_t
		fillStat(&st, e.Info)
		if !fill(e.Name, &st, 0) {
			break
		}
	}
	return 0
}

// translateOpenFlags maps POSIX open(2) flags, as cgofuse hands them to
// Open, onto the NT-flavored disposition/options vocabulary
// vfshandler.Handler.CreateFile expects (spec §4.4 "Open semantics").
func translateOpenFlags(flags int) (vfshandler.CreateDisposition, vfshandler.CreateOptions) {
	opts := vfshandler.CreateOptions{
		NonDirectoryFile: true,
		WantsWrite:       flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0,
	}

	switch {
	case flags&syscall.O_CREAT != 0 && flags&syscall.O_EXCL != 0:
		return vfshandler.DispositionCreate, opts
	case flags&syscall.O_CREAT != 0 && flags&syscall.O_TRUNC != 0:
		return vfshandler.DispositionCreateAlways, opts
	case flags&syscall.O_CREAT != 0:
		return vfshandler.DispositionOpenIf, opts
	case flags&syscall.O_TRUNC != 0:
		return vfshandler.DispositionOverwrite, opts
	default:
		return vfshandler.DispositionOpen, opts
	}
}

// Open implements fuse.FileSystemInterface.
func (a *Adapter) Open(path string, flags int) (int, uint64) {
	disposition, opts := translateOpenFlags(flags)
	fh, status := a.handler.CreateFile(cleanPath(path), disposition, opts)
	if status != vfsstatus.Success {
		return -status.ToErrno(), 0
	}
	return 0, fh
}

// Release implements fuse.FileSystemInterface.
func (a *Adapter) Release(path string, fh uint64) int {
	a.handler.Close(fh)
	return 0
}

// Read implements fuse.FileSystemInterface.
func (a *Adapter) Read(path string, dest []byte, ofst int64, fh uint64) int {
	n, status := a.handler.ReadFile(fh, ofst, dest)
	if status != vfsstatus.Success {
		return -status.ToErrno()
	}
	return n
}

// Statfs implements fuse.FileSystemInterface with the fixed synthetic
// volume capacity (spec §4.4 "GetDiskFreeSpace").
func (a *Adapter) Statfs(path string, stat *fuse.Statfs_t) int {
	total, free := a.handler.DiskFreeSpace()
	const blockSize = 4096
	stat.Bsize = blockSize
	stat.Frsize = blockSize
	stat.Blocks = total / blockSize
	stat.Bfree = free / blockSize
	stat.Bavail = free / blockSize
	return 0
}

func fillStat(st *fuse.Stat_t, info vfshandler.FileInfo) {
	if info.IsDirectory {
		st.Mode = fuse.S_IFDIR | 0555
	} else {
		st.Mode = fuse.S_IFREG | 0444
		st.Size = int64(info.Size)
	}
	st.Mtim.Sec = info.Modified.Unix()
	st.Ctim.Sec = info.Created.Unix()
	st.Atim.Sec = info.Accessed.Unix()
}
