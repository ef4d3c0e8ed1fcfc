package mft

import (
	"encoding/binary"
	"fmt"
)

const sectorSize = 512

// applyFixup validates and repairs the update-sequence protection NTFS
// applies to every MFT record and index block: the last two bytes of
// each on-disk sector are swapped out for a shared sentinel value, with
// the real bytes stashed in the update-sequence array at the start of
// the record. Corruption is detected, not just silently patched over --
// a sector whose tail doesn't match the sentinel means the record is
// unreliable and the caller should skip it.
func applyFixup(raw []byte) error {
	if len(raw) < 8 {
		return fmt.Errorf("mft: record too short for fixup header")
	}
	usaOffset := binary.LittleEndian.Uint16(raw[4:6])
	usaCount := binary.LittleEndian.Uint16(raw[6:8])
	if usaCount == 0 {
		return nil
	}
	usaStart := int(usaOffset)
	if usaStart+int(usaCount)*2 > len(raw) {
		return fmt.Errorf("mft: update sequence array out of bounds")
	}

	sentinel := raw[usaStart : usaStart+2]
	for i := 0; i < int(usaCount)-1; i++ {
		sectorEnd := (i+1)*sectorSize - 2
		if sectorEnd+2 > len(raw) {
			break
		}
		tail := raw[sectorEnd : sectorEnd+2]
		if tail[0] != sentinel[0] || tail[1] != sentinel[1] {
			return fmt.Errorf("mft: fixup sentinel mismatch at sector %d", i)
		}
		real := raw[usaStart+2+i*2 : usaStart+4+i*2]
		tail[0], tail[1] = real[0], real[1]
	}
	return nil
}
