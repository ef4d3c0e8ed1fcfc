package vfshandler

import (
	"github.com/ununlink/ununlink/internal/vfsstatus"
)

// ReadFile reads up to len(dest) bytes of the file named by handle's
// data starting at offset, returning the number of bytes copied (spec
// §4.4 "Read file"). handle must be the id CreateFile returned for this
// open; the MFT number it stashed in HandleCtx is used directly rather
// than re-resolving the path, matching the per-handle lifecycle spec §3
// describes.
//
// The call into the MFT reader is wrapped in recover() the way the
// original tool wraps its own reader call in catch_unwind: a single
// corrupt record must degrade to a read error for that one file, never
// take the whole mount down (spec §7, property P6).
func (h *Handler) ReadFile(handle uint64, offset int64, dest []byte) (n int, status vfsstatus.Status) {
	ctx, ok := h.handle(handle)
	if !ok {
		return 0, vfsstatus.NotFound
	}
	if ctx.IsDir {
		return 0, vfsstatus.InvalidRequest
	}
	if !ctx.HasMFTNumber {
		return 0, vfsstatus.NotFound
	}
	if offset < 0 {
		offset = 0
	}

	data, err := h.readDataIsolated(ctx.MFTNumber)
	if err != nil {
		h.log.WithError(err).WithField("path", ctx.OriginalPath).Warn("vfshandler: read failed")
		return 0, vfsstatus.FatalOpen
	}

	if isTrimZero(data, offset) {
		return 0, vfsstatus.NotFound
	}

	if offset >= int64(len(data)) {
		return 0, vfsstatus.Success
	}
	n = copy(dest, data[offset:])
	return n, vfsstatus.Success
}

// readDataIsolated calls the shared mft.Reader's ReadData, converting a
// panic into an error rather than propagating it.
func (h *Handler) readDataIsolated(mftNumber uint64) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rawDeviceReadError("", r)
		}
	}()
	h.mu.RLock()
	reader := h.reader
	h.mu.RUnlock()
	return reader.ReadData(mftNumber)
}

// isTrimZero implements the TRIM-zero heuristic (spec §4.4 property
// P7): a read starting at offset 0 that comes back as a non-empty,
// entirely zeroed buffer almost certainly means the clusters backing
// this file have been reused and TRIM-zeroed since the scan ran, so the
// file is treated as gone rather than serving fabricated zero bytes.
func isTrimZero(data []byte, offset int64) bool {
	if offset != 0 || len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
