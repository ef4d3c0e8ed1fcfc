//go:build !windows

package mount

import (
	"errors"

	"github.com/ununlink/ununlink/internal/mft"
)

// OpenVolume has no real implementation outside Windows: raw volume
// devices addressed by drive letter are a Windows concept (spec §1).
func OpenVolume(driveLetter string) (mft.Reader, error) {
	return nil, errors.New("mount: raw volume access is only supported on windows")
}
