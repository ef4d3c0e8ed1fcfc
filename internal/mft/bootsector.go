package mft

import (
	"encoding/binary"
	"fmt"
)

// geometry is the handful of NTFS boot-sector fields the decoder needs:
// cluster/sector sizes and where the $MFT begins.
type geometry struct {
	BytesPerSector    uint32
	SectorsPerCluster uint32
	MFTStartCluster   uint64
	RecordSize        uint32
}

func (g geometry) bytesPerCluster() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

func (g geometry) mftOffset() uint64 {
	return g.MFTStartCluster * g.bytesPerCluster()
}

// parseBootSector reads the fixed NTFS BPB fields out of sector 0.
// Layout reference: bytes 11-12 bytes/sector, byte 13 sectors/cluster,
// bytes 48-55 $MFT start cluster (LCN), byte 64 signed
// clusters-per-MFT-record (negative means 2^|n| bytes).
func parseBootSector(sector0 []byte) (geometry, error) {
	if len(sector0) < 512 {
		return geometry{}, fmt.Errorf("mft: boot sector too short (%d bytes)", len(sector0))
	}
	if string(sector0[3:11]) != "NTFS    " {
		return geometry{}, fmt.Errorf("mft: not an NTFS volume (oem id %q)", sector0[3:11])
	}

	g := geometry{
		BytesPerSector:    uint32(binary.LittleEndian.Uint16(sector0[11:13])),
		SectorsPerCluster: uint32(sector0[13]),
		MFTStartCluster:   binary.LittleEndian.Uint64(sector0[48:56]),
	}
	if g.BytesPerSector == 0 || g.SectorsPerCluster == 0 {
		return geometry{}, fmt.Errorf("mft: invalid boot sector geometry")
	}

	clustersPerRecord := int8(sector0[64])
	switch {
	case clustersPerRecord > 0:
		g.RecordSize = uint32(clustersPerRecord) * uint32(g.bytesPerCluster())
	case clustersPerRecord < 0:
		g.RecordSize = 1 << uint(-clustersPerRecord)
	default:
		return geometry{}, fmt.Errorf("mft: invalid clusters-per-record field")
	}
	return g, nil
}
