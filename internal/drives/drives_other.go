//go:build !windows

package drives

import "errors"

// discoverPlatform has no implementation outside Windows: NTFS volumes
// are mounted/served through Win32 drive letters, which only exist on
// Windows (spec §1 "Purpose & Scope"). Non-Windows builds still compile
// -- only for running the package's unit tests against fakes -- they
// just cannot discover anything real.
func discoverPlatform() ([]Drive, error) {
	return nil, errors.New("drives: drive discovery is only supported on windows")
}
