package mft

import (
	"fmt"
	"io"
)

// VolumeReader is the concrete, real Reader: it parses the NTFS boot
// sector once at Open, then decodes individual MFT records on demand
// straight from the raw device. It never caches record bytes across
// calls -- a worker's per-span internal/mft.Cache only memoizes
// reconstructed paths, not raw record data, since re-reading is cheap
// and correctness (picking up whatever bytes are currently on disk)
// matters more than speed here.
type VolumeReader struct {
	dev     deviceReaderAt
	geo     geometry
	mftRuns []dataRun
	mftSize uint64
}

var _ Reader = (*VolumeReader)(nil)
var _ PathReconstructor = (*VolumeReader)(nil)

// Open parses dev's boot sector and locates $MFT (record 0) to learn
// its own extents, so record numbers can be translated to device
// offsets even when $MFT itself is fragmented.
func Open(dev io.ReaderAt) (*VolumeReader, error) {
	sector0 := make([]byte, sectorSize)
	if _, err := dev.ReadAt(sector0, 0); err != nil {
		return nil, fmt.Errorf("mft: reading boot sector: %w", err)
	}
	geo, err := parseBootSector(sector0)
	if err != nil {
		return nil, err
	}

	// Record 0 ($MFT itself) always begins at MFTStartCluster.
	raw := make([]byte, geo.RecordSize)
	if _, err := dev.ReadAt(raw, int64(geo.mftOffset())); err != nil {
		return nil, fmt.Errorf("mft: reading $MFT record 0: %w", err)
	}
	if err := applyFixup(raw); err != nil {
		return nil, fmt.Errorf("mft: $MFT record 0 fixup: %w", err)
	}
	pr, ok := decodeRecord(raw)
	if !ok || !pr.hasData {
		return nil, fmt.Errorf("mft: $MFT record 0 has no usable $DATA attribute")
	}

	return &VolumeReader{dev: dev, geo: geo, mftRuns: pr.dataRuns, mftSize: pr.dataSize}, nil
}

// MaxRecord returns the number of records $MFT's data currently spans.
func (r *VolumeReader) MaxRecord() uint64 {
	if r.geo.RecordSize == 0 {
		return 0
	}
	return r.mftSize / uint64(r.geo.RecordSize)
}

// readLogical reads length bytes starting at logicalOffset within a
// non-resident attribute's data-run-mapped stream, zero-filling sparse
// runs.
func (r *VolumeReader) readLogical(runs []dataRun, logicalOffset, length uint64) ([]byte, error) {
	out := make([]byte, length)
	bpc := r.geo.bytesPerCluster()
	if bpc == 0 || length == 0 {
		return out, nil
	}

	skip := logicalOffset
	var filled uint64
	for _, run := range runs {
		runBytes := run.lengthClusters * bpc
		if skip >= runBytes {
			skip -= runBytes
			continue
		}
		avail := runBytes - skip
		take := avail
		if rem := length - filled; take > rem {
			take = rem
		}
		if !run.sparse {
			physOff := uint64(run.startLCN)*bpc + skip
			if _, err := r.dev.ReadAt(out[filled:filled+take], int64(physOff)); err != nil && err != io.EOF {
				return nil, err
			}
		}
		filled += take
		skip = 0
		if filled >= length {
			break
		}
	}
	return out, nil
}

// parse decodes record n's raw attributes, applying fixup first.
func (r *VolumeReader) parse(n uint64) (parsedRecord, bool) {
	if r.geo.RecordSize == 0 || n >= r.MaxRecord() {
		return parsedRecord{}, false
	}
	raw, err := r.readLogical(r.mftRuns, n*uint64(r.geo.RecordSize), uint64(r.geo.RecordSize))
	if err != nil {
		return parsedRecord{}, false
	}
	if err := applyFixup(raw); err != nil {
		return parsedRecord{}, false
	}
	return decodeRecord(raw)
}

// GetRecord implements Reader.
func (r *VolumeReader) GetRecord(n uint64) (Record, bool) {
	pr, ok := r.parse(n)
	if !ok {
		return Record{}, false
	}
	rec := Record{Number: n, InUse: pr.inUse, IsDir: pr.isDir, Size: pr.dataSize}
	if pr.hasStd {
		rec.Created = pr.stdInfo.created
		rec.Modified = pr.stdInfo.modified
		rec.Accessed = pr.stdInfo.accessed
	}
	if pr.hasName {
		rec.parentRef = pr.fileName.parentRecord
		rec.hasParent = true
		rec.name = pr.fileName.name
		if rec.Size == 0 {
			rec.Size = pr.fileName.size
		}
	}
	return rec, true
}

// ReadData implements Reader. It re-decodes record n's $DATA attribute
// fresh rather than trusting anything cached, since the whole point is
// to see clusters as they currently stand on disk.
func (r *VolumeReader) ReadData(n uint64) ([]byte, error) {
	pr, ok := r.parse(n)
	if !ok {
		return nil, fmt.Errorf("mft: record %d unreadable", n)
	}
	if !pr.hasData {
		return nil, ErrNoData
	}
	if pr.dataValue != nil {
		return pr.dataValue, nil
	}
	data, err := r.readLogical(pr.dataRuns, 0, pr.dataSize)
	if err != nil {
		return nil, fmt.Errorf("mft: reading record %d data runs: %w", n, err)
	}
	return data, nil
}
