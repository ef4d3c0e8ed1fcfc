package mft

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
)

const (
	attrStandardInformation uint32 = 0x10
	attrFileName            uint32 = 0x30
	attrData                uint32 = 0x80
	attrEnd                 uint32 = 0xFFFFFFFF

	fileNameTypeDOS = 2
)

// filetimeToTime converts a Windows FILETIME (100ns intervals since
// 1601-01-01 UTC) to a time.Time. A zero FILETIME yields nil.
func filetimeToTime(ft uint64) *time.Time {
	if ft == 0 {
		return nil
	}
	const epochDiff = 116444736000000000 // 1601->1970 in 100ns units
	secs := int64(ft-epochDiff) / 10000000
	nsecs := (int64(ft-epochDiff) % 10000000) * 100
	t := time.Unix(secs, nsecs).UTC()
	return &t
}

// standardInfo is the subset of STANDARD_INFORMATION (attribute 0x10)
// the index cares about.
type standardInfo struct {
	created  *time.Time
	modified *time.Time
	accessed *time.Time
}

func decodeStandardInformation(v []byte) (standardInfo, bool) {
	if len(v) < 32 {
		return standardInfo{}, false
	}
	return standardInfo{
		created:  filetimeToTime(binary.LittleEndian.Uint64(v[0:8])),
		modified: filetimeToTime(binary.LittleEndian.Uint64(v[8:16])),
		accessed: filetimeToTime(binary.LittleEndian.Uint64(v[24:32])),
	}, true
}

// fileNameAttr is the subset of a FILE_NAME attribute (0x30) the path
// reconstructor and index need.
type fileNameAttr struct {
	parentRecord uint64
	size         uint64
	name         string
	nameType     byte
}

func decodeFileName(v []byte) (fileNameAttr, bool) {
	if len(v) < 66 {
		return fileNameAttr{}, false
	}
	parentRef := binary.LittleEndian.Uint64(v[0:8])
	size := binary.LittleEndian.Uint64(v[48:56])
	nameLenChars := int(v[64])
	nameType := v[65]
	nameBytes := 66 + nameLenChars*2
	if len(v) < nameBytes {
		return fileNameAttr{}, false
	}
	u16 := make([]uint16, nameLenChars)
	for i := 0; i < nameLenChars; i++ {
		u16[i] = binary.LittleEndian.Uint16(v[66+2*i : 68+2*i])
	}
	return fileNameAttr{
		parentRecord: parentRef & 0x0000FFFFFFFFFFFF, // low 48 bits
		size:         size,
		name:         string(utf16.Decode(u16)),
		nameType:     nameType,
	}, true
}

// parsedRecord holds everything decodeRecord extracts from one MFT
// record's attribute list.
type parsedRecord struct {
	inUse bool
	isDir bool

	stdInfo   standardInfo
	hasStd    bool
	fileName  fileNameAttr
	hasName   bool
	dataSize  uint64
	hasData   bool
	dataRuns  []dataRun
	dataValue []byte // present when the unnamed $DATA attribute is resident
}

// decodeRecord parses one fixed-up MFT record buffer (fixup already
// applied by the caller) into its attributes.
func decodeRecord(raw []byte) (parsedRecord, bool) {
	if len(raw) < 48 || string(raw[0:4]) != "FILE" {
		return parsedRecord{}, false
	}
	flags := binary.LittleEndian.Uint16(raw[22:24])
	firstAttrOffset := binary.LittleEndian.Uint16(raw[20:22])

	pr := parsedRecord{
		inUse: flags&0x0001 != 0,
		isDir: flags&0x0002 != 0,
	}

	off := int(firstAttrOffset)
	for off+8 <= len(raw) {
		typ := binary.LittleEndian.Uint32(raw[off : off+4])
		if typ == attrEnd {
			break
		}
		length := binary.LittleEndian.Uint32(raw[off+4 : off+8])
		if length == 0 || off+int(length) > len(raw) {
			break
		}
		body := raw[off : off+int(length)]
		nonResident := body[8] != 0

		switch typ {
		case attrStandardInformation:
			if !nonResident && len(body) >= 24 {
				valOff := binary.LittleEndian.Uint16(body[20:22])
				valLen := binary.LittleEndian.Uint32(body[16:20])
				if int(valOff)+int(valLen) <= len(body) {
					if si, ok := decodeStandardInformation(body[valOff : valOff+uint16(valLen)]); ok {
						pr.stdInfo = si
						pr.hasStd = true
					}
				}
			}
		case attrFileName:
			if !nonResident && len(body) >= 24 {
				valOff := binary.LittleEndian.Uint16(body[20:22])
				valLen := binary.LittleEndian.Uint32(body[16:20])
				if int(valOff)+int(valLen) <= len(body) {
					if fn, ok := decodeFileName(body[valOff : valOff+uint16(valLen)]); ok {
						// Prefer the Win32 (or Win32&DOS) name over a
						// DOS-only 8.3 alias if both are present.
						if !pr.hasName || fn.nameType != fileNameTypeDOS {
							pr.fileName = fn
							pr.hasName = true
						}
					}
				}
			}
		case attrData:
			if body[9] != 0 { // nameLenChars != 0: a named ADS, not the unnamed $DATA stream
				break
			}
			if !nonResident {
				if len(body) >= 24 {
					valOff := binary.LittleEndian.Uint16(body[20:22])
					valLen := binary.LittleEndian.Uint32(body[16:20])
					if int(valOff)+int(valLen) <= len(body) {
						pr.dataValue = append([]byte(nil), body[valOff:valOff+uint16(valLen)]...)
						pr.dataSize = uint64(valLen)
						pr.hasData = true
					}
				}
			} else if len(body) >= 64 {
				realSize := binary.LittleEndian.Uint64(body[48:56])
				runsOffset := binary.LittleEndian.Uint16(body[32:34])
				if int(runsOffset) < len(body) {
					pr.dataRuns = decodeDataRuns(body[runsOffset:])
				}
				pr.dataSize = realSize
				pr.hasData = true
			}
		}

		off += int(length)
	}

	return pr, true
}
