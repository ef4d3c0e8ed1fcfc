package mft

// dataRun is one decoded entry of a non-resident attribute's run list:
// lengthClusters clusters starting at startLCN, or a sparse (hole) run
// when sparse is true.
type dataRun struct {
	startLCN       int64
	lengthClusters uint64
	sparse         bool
}

// decodeDataRuns parses the data-run byte stream of a non-resident
// attribute. Each run begins with a header byte whose low nibble is the
// byte-width of the length field and whose high nibble is the byte-width
// of the signed LCN-delta field (0 means sparse, no offset field). The
// stream ends at a 0x00 header byte.
func decodeDataRuns(buf []byte) []dataRun {
	var runs []dataRun
	lcn := int64(0)
	i := 0
	for i < len(buf) {
		header := buf[i]
		if header == 0 {
			break
		}
		lenSize := int(header & 0x0F)
		offSize := int(header >> 4)
		i++
		if i+lenSize > len(buf) {
			break
		}
		length := readUintLE(buf[i : i+lenSize])
		i += lenSize

		sparse := offSize == 0
		var delta int64
		if !sparse {
			if i+offSize > len(buf) {
				break
			}
			delta = readIntLE(buf[i : i+offSize])
			i += offSize
			lcn += delta
		}
		runs = append(runs, dataRun{startLCN: lcn, lengthClusters: length, sparse: sparse})
	}
	return runs
}

func readUintLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// readIntLE decodes a little-endian two's-complement signed integer of
// arbitrary byte width, as used for data-run LCN deltas.
func readIntLE(b []byte) int64 {
	v := readUintLE(b)
	bits := uint(len(b)) * 8
	if bits < 64 && v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}
