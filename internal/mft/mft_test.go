package mft

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test geometry: 512 bytes/sector, 1 sector/cluster, 1024-byte records
// (2 sectors each), so byte offsets stay easy to reason about by hand.
const (
	testBytesPerSector = 512
	testRecordSize     = 1024
	testMFTStartLCN    = 4 // mftOffset = 4*512 = 2048
)

// recordBuilder assembles one 1024-byte MFT record (header + attributes
// + fixup) the way a real volume would store it, so VolumeReader is
// exercised against genuine on-disk shape rather than a shortcut.
type recordBuilder struct {
	flags uint16
	attrs [][]byte
}

func newRecordBuilder(inUse, isDir bool) *recordBuilder {
	var flags uint16
	if inUse {
		flags |= 0x0001
	}
	if isDir {
		flags |= 0x0002
	}
	return &recordBuilder{flags: flags}
}

func (b *recordBuilder) addStandardInformation(created, modified, accessed time.Time) {
	v := make([]byte, 48)
	binary.LittleEndian.PutUint64(v[0:8], timeToFiletime(created))
	binary.LittleEndian.PutUint64(v[8:16], timeToFiletime(modified))
	binary.LittleEndian.PutUint64(v[16:24], timeToFiletime(modified))
	binary.LittleEndian.PutUint64(v[24:32], timeToFiletime(accessed))
	b.attrs = append(b.attrs, residentAttr(attrStandardInformation, v))
}

func (b *recordBuilder) addFileName(parentRecord uint64, name string, size uint64) {
	u16 := utf16.Encode([]rune(name))
	v := make([]byte, 66+len(u16)*2)
	binary.LittleEndian.PutUint64(v[0:8], parentRecord&0x0000FFFFFFFFFFFF)
	binary.LittleEndian.PutUint64(v[48:56], size)
	v[64] = byte(len(u16))
	v[65] = 1 // Win32 namespace
	for i, c := range u16 {
		binary.LittleEndian.PutUint16(v[66+2*i:68+2*i], c)
	}
	b.attrs = append(b.attrs, residentAttr(attrFileName, v))
}

func (b *recordBuilder) addResidentData(content []byte) {
	b.attrs = append(b.attrs, residentAttr(attrData, content))
}

func (b *recordBuilder) addNonResidentData(realSize uint64, runs []byte) {
	body := make([]byte, 64+len(runs))
	body[8] = 1 // non-resident
	binary.LittleEndian.PutUint16(body[32:34], 64) // data run offset
	binary.LittleEndian.PutUint64(body[48:56], realSize)
	copy(body[64:], runs)
	binary.LittleEndian.PutUint32(body[0:4], attrData)
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(body)))
	b.attrs = append(b.attrs, body)
}

// residentAttr builds a complete resident attribute record (common
// header + resident-specific fields + value), padded to an 8-byte
// boundary as NTFS requires.
func residentAttr(typ uint32, value []byte) []byte {
	headerLen := 24
	total := headerLen + len(value)
	if pad := total % 8; pad != 0 {
		total += 8 - pad
	}
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], typ)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(total))
	buf[8] = 0 // resident
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(buf[20:22], uint16(headerLen))
	copy(buf[headerLen:], value)
	return buf
}

// build renders the full fixed-up record bytes.
func (b *recordBuilder) build() []byte {
	raw := make([]byte, testRecordSize)
	copy(raw[0:4], "FILE")
	binary.LittleEndian.PutUint16(raw[4:6], 48)  // update sequence offset
	binary.LittleEndian.PutUint16(raw[6:8], 3)   // USN + 2 sectors
	binary.LittleEndian.PutUint16(raw[20:22], 56) // first attribute offset
	binary.LittleEndian.PutUint16(raw[22:24], b.flags)

	off := 56
	for _, a := range b.attrs {
		copy(raw[off:], a)
		off += len(a)
	}
	binary.LittleEndian.PutUint32(raw[off:off+4], attrEnd)

	applyTestFixup(raw, 48, 3)
	return raw
}

// applyTestFixup writes a synthetic sentinel into the sector tails and
// records their real values in the update sequence array, mirroring
// what a real NTFS driver does on write.
func applyTestFixup(raw []byte, usaOffset, usaCount int) {
	sentinel := [2]byte{0xAB, 0xCD}
	binary.LittleEndian.PutUint16(raw[usaOffset:usaOffset+2], binary.LittleEndian.Uint16(sentinel[:]))
	for i := 0; i < usaCount-1; i++ {
		sectorEnd := (i+1)*sectorSize - 2
		real := [2]byte{raw[sectorEnd], raw[sectorEnd+1]}
		copy(raw[usaOffset+2+i*2:usaOffset+4+i*2], real[:])
		raw[sectorEnd], raw[sectorEnd+1] = sentinel[0], sentinel[1]
	}
}

func timeToFiletime(t time.Time) uint64 {
	const epochDiff = 116444736000000000
	return uint64(t.UTC().UnixNano()/100) + epochDiff
}

// buildTestVolume lays out a boot sector plus three records: $MFT
// (record 0, self-describing), a directory acting as root (record 1,
// self-parented), and a file under it (record 2, resident data).
func buildTestVolume(t *testing.T, fileName string, fileContent []byte) []byte {
	t.Helper()

	const recordCount = 3
	mftOffset := testMFTStartLCN * testBytesPerSector
	mftBytes := recordCount * testRecordSize

	buf := make([]byte, mftOffset+mftBytes)

	// Boot sector.
	copy(buf[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(buf[11:13], testBytesPerSector)
	buf[13] = 1 // sectors per cluster
	binary.LittleEndian.PutUint64(buf[48:56], testMFTStartLCN)
	buf[64] = byte(int8(-10)) // 2^10 = 1024-byte records

	// Record 0: $MFT, non-resident $DATA covering all three records,
	// one run starting at the same cluster the boot sector points to.
	mftRecordClusters := uint64(mftBytes / testBytesPerSector)
	runs := encodeTestRun(testMFTStartLCN, mftRecordClusters)
	rb0 := newRecordBuilder(true, false)
	rb0.addNonResidentData(uint64(mftBytes), runs)
	copy(buf[mftOffset:], rb0.build())

	// Record 1: root-like directory, self-parented.
	rb1 := newRecordBuilder(true, true)
	rb1.addFileName(1, "root", 0)
	copy(buf[mftOffset+testRecordSize:], rb1.build())

	// Record 2: file under record 1.
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rb2 := newRecordBuilder(true, false)
	rb2.addStandardInformation(now, now, now)
	rb2.addFileName(1, fileName, uint64(len(fileContent)))
	rb2.addResidentData(fileContent)
	copy(buf[mftOffset+2*testRecordSize:], rb2.build())

	return buf
}

func encodeTestRun(startLCN int64, length uint64) []byte {
	// header byte: length field 1 byte, offset field 1 byte (assuming
	// small test values fit in a single byte each).
	return []byte{0x11, byte(length), byte(startLCN), 0x00}
}

func TestVolumeReaderDecodesRecords(t *testing.T) {
	buf := buildTestVolume(t, "hello.txt", []byte("hi there"))
	dev := bytes.NewReader(buf)

	vr, err := Open(dev)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), vr.MaxRecord())

	root, ok := vr.GetRecord(1)
	require.True(t, ok)
	assert.True(t, root.IsDir)
	assert.True(t, root.InUse)

	file, ok := vr.GetRecord(2)
	require.True(t, ok)
	assert.False(t, file.IsDir)
	assert.True(t, file.InUse)
	assert.Equal(t, uint64(8), file.Size)
	require.NotNil(t, file.Modified)
	assert.Equal(t, 2024, file.Modified.Year())

	data, err := vr.ReadData(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi there"), data)

	path, ok := vr.Path(file, NewCache())
	require.True(t, ok)
	assert.Equal(t, `\hello.txt`, path)
}

func TestVolumeReaderRejectsNonNTFS(t *testing.T) {
	buf := make([]byte, 512)
	_, err := Open(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestDecodeDataRunsSparseAndSigned(t *testing.T) {
	// One real run of 4 clusters at LCN 10, then a 2-cluster sparse hole,
	// then a run at LCN 8 (negative delta from 10).
	buf := []byte{
		0x11, 0x04, 0x0A, // real run: len=4, offset=+10
		0x01, 0x02, // sparse run: len=2, no offset byte
		0x11, 0x04, 0xFE, // real run: len=4, offset=-2 (signed byte 0xFE)
		0x00,
	}
	runs := decodeDataRuns(buf)
	require.Len(t, runs, 3)
	assert.Equal(t, dataRun{startLCN: 10, lengthClusters: 4}, runs[0])
	assert.True(t, runs[1].sparse)
	assert.Equal(t, uint64(2), runs[1].lengthClusters)
	assert.Equal(t, int64(8), runs[2].startLCN)
	assert.Equal(t, uint64(4), runs[2].lengthClusters)
}
