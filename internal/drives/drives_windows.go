//go:build windows

package drives

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// discoverPlatform enumerates fixed drives via the same Win32 calls the
// original tool's drive picker used: GetLogicalDrives to find letters in
// use, GetDriveType to keep only fixed volumes, GetVolumeInformation for
// label/filesystem, and GetDiskFreeSpaceEx for capacity.
func discoverPlatform() ([]Drive, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("drives: GetLogicalDrives: %w", err)
	}

	var out []Drive
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A'+i)) + ":"
		root := letter + `\`

		rootPtr, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}
		driveType := windows.GetDriveType(rootPtr)
		if driveType != windows.DRIVE_FIXED {
			continue
		}

		d := Drive{Letter: letter}

		var label, fsName [windows.MAX_PATH + 1]uint16
		err = windows.GetVolumeInformation(rootPtr, &label[0], uint32(len(label)), nil, nil, nil, &fsName[0], uint32(len(fsName)))
		if err == nil {
			d.Label = windows.UTF16ToString(label[:])
			d.FileSystem = windows.UTF16ToString(fsName[:])
			d.IsNTFS = d.FileSystem == "NTFS"
		}

		var free, total, totalFree uint64
		if err := getDiskFreeSpaceEx(root, &free, &total, &totalFree); err == nil {
			d.TotalBytes = total
			d.FreeBytes = free
		}

		out = append(out, d)
	}
	return out, nil
}

// getDiskFreeSpaceEx wraps GetDiskFreeSpaceExW directly: the
// golang.org/x/sys/windows package exposes the simpler
// GetDiskFreeSpace (cluster/sector counts, 32-bit overflow-prone) but
// not the Ex variant, so it is called via syscall against the proc
// address the same way windows.* wrappers do internally.
func getDiskFreeSpaceEx(root string, freeBytesAvailable, totalBytes, totalFreeBytes *uint64) error {
	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return err
	}
	proc := modkernel32.NewProc("GetDiskFreeSpaceExW")
	r1, _, callErr := proc.Call(
		uintptr(unsafe.Pointer(rootPtr)),
		uintptr(unsafe.Pointer(freeBytesAvailable)),
		uintptr(unsafe.Pointer(totalBytes)),
		uintptr(unsafe.Pointer(totalFreeBytes)),
	)
	if r1 == 0 {
		return callErr
	}
	return nil
}

var modkernel32 = syscall.NewLazyDLL("kernel32.dll")
