//go:build windows

package mount

import (
	"fmt"
	"os"

	"github.com/ununlink/ununlink/internal/mft"
)

// OpenVolume opens driveLetter's raw device ("C:" -> "\\.\C:") for
// shared, read-only access and wraps it in an mft.Reader (spec §4.5
// "Volume/MFT open").
func OpenVolume(driveLetter string) (mft.Reader, error) {
	path := `\\.\` + driveLetter
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mount: opening raw volume %s: %w", path, err)
	}
	reader, err := mft.Open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return reader, nil
}
