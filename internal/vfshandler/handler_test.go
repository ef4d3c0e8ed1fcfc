package vfshandler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ununlink/ununlink/internal/index"
	"github.com/ununlink/ununlink/internal/mfttest"
	"github.com/ununlink/ununlink/internal/vfsstatus"
)

func buildTestIndex() *index.DeletedIndex {
	idx := index.New()
	idx.InsertFile(`\docs\report.txt`, index.EntryMeta{MFTNumber: 1, Size: 5})
	idx.InsertFile(`\docs\notes.md`, index.EntryMeta{MFTNumber: 2, Size: 3})
	idx.InsertDir(`\docs\empty`)
	return idx
}

func buildTestFake() *mfttest.Fake {
	return &mfttest.Fake{Records: []mfttest.Entry{
		{}, {Data: []byte("hello")}, {Data: []byte("hi!")},
	}}
}

func TestGetFileInformationRoot(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	info, status := h.GetFileInformation(`\`)
	require.Equal(t, vfsstatus.Success, status)
	assert.True(t, info.IsDirectory)
}

func TestGetFileInformationNotFound(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	_, status := h.GetFileInformation(`\missing.txt`)
	assert.Equal(t, vfsstatus.NotFound, status)
}

// TestCreateFileDispositionTable exercises every row of spec §4.4's
// "Open semantics" table in the table's own order.
func TestCreateFileDispositionTable(t *testing.T) {
	cases := []struct {
		name        string
		path        string
		disposition CreateDisposition
		opts        CreateOptions
		wantStatus  vfsstatus.Status
		wantDir     bool
		wantMFT     bool
	}{
		{
			name:        "write intent always denied",
			path:        `\docs\report.txt`,
			disposition: DispositionOpen,
			opts:        CreateOptions{WantsWrite: true},
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "create new denied",
			path:        `\docs\new.txt`,
			disposition: DispositionCreate,
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "create always denied",
			path:        `\docs\report.txt`,
			disposition: DispositionCreateAlways,
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "overwrite denied",
			path:        `\docs\report.txt`,
			disposition: DispositionOverwrite,
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "overwrite if denied",
			path:        `\docs\report.txt`,
			disposition: DispositionOverwriteIf,
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "delete on close denied",
			path:        `\docs\report.txt`,
			disposition: DispositionOpen,
			opts:        CreateOptions{DeleteOnClose: true},
			wantStatus:  vfsstatus.AccessDenied,
		},
		{
			name:        "root always opens as a directory",
			path:        `\`,
			disposition: DispositionOpen,
			wantStatus:  vfsstatus.Success,
			wantDir:     true,
		},
		{
			name:        "directory open with non-directory-file option fails",
			path:        `\docs`,
			disposition: DispositionOpen,
			opts:        CreateOptions{NonDirectoryFile: true},
			wantStatus:  vfsstatus.FileIsDirectory,
		},
		{
			name:        "directory opens fine without options",
			path:        `\docs`,
			disposition: DispositionOpen,
			wantStatus:  vfsstatus.Success,
			wantDir:     true,
		},
		{
			name:        "file open with directory-file option fails",
			path:        `\docs\report.txt`,
			disposition: DispositionOpen,
			opts:        CreateOptions{DirectoryFile: true},
			wantStatus:  vfsstatus.NotADirectory,
		},
		{
			name:        "file opens and remembers its MFT number",
			path:        `\docs\report.txt`,
			disposition: DispositionOpen,
			wantStatus:  vfsstatus.Success,
			wantMFT:     true,
		},
		{
			name:        "file open-if succeeds the same as open",
			path:        `\docs\report.txt`,
			disposition: DispositionOpenIf,
			wantStatus:  vfsstatus.Success,
			wantMFT:     true,
		},
		{
			name:        "open on absent target is not found",
			path:        `\docs\missing.txt`,
			disposition: DispositionOpen,
			wantStatus:  vfsstatus.NotFound,
		},
		{
			name:        "open-if on absent target is not found",
			path:        `\docs\missing.txt`,
			disposition: DispositionOpenIf,
			wantStatus:  vfsstatus.NotFound,
		},
		{
			name:        "create on absent target is denied, not attempted",
			path:        `\docs\missing.txt`,
			disposition: DispositionCreate,
			wantStatus:  vfsstatus.AccessDenied,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(buildTestIndex(), buildTestFake(), nil)
			fh, status := h.CreateFile(tc.path, tc.disposition, tc.opts)
			require.Equal(t, tc.wantStatus, status)
			if tc.wantStatus != vfsstatus.Success {
				assert.Zero(t, fh)
				return
			}
			ctx, ok := h.handle(fh)
			require.True(t, ok)
			assert.Equal(t, tc.wantDir, ctx.IsDir)
			assert.Equal(t, tc.wantMFT, ctx.HasMFTNumber)
		})
	}
}

func TestCreateFileThenCloseForgetsHandle(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	fh, status := h.CreateFile(`\docs\report.txt`, DispositionOpen, CreateOptions{})
	require.Equal(t, vfsstatus.Success, status)

	h.Close(fh)
	_, ok := h.handle(fh)
	assert.False(t, ok)
}

func TestFindFilesWithPatternMatchesCaseInsensitive(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	entries, status := h.FindFilesWithPattern(0, `\docs`, "*.TXT")
	require.Equal(t, vfsstatus.Success, status)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "report.txt")
	assert.NotContains(t, names, "notes.md")
}

func TestFindFilesOnFileFails(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	_, status := h.FindFiles(0, `\docs\report.txt`)
	assert.Equal(t, vfsstatus.InvalidRequest, status)
}

// TestFindFilesSynthesizesDotEntries locks in spec §4.4 step 3 / §8
// scenarios 1-2: every directory listing starts with "." and "..".
func TestFindFilesSynthesizesDotEntries(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	entries, status := h.FindFiles(0, `\docs`)
	require.Equal(t, vfsstatus.Success, status)
	require.True(t, len(entries) >= 2)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, "..", entries[1].Name)
	assert.True(t, entries[0].Info.IsDirectory)
	assert.True(t, entries[1].Info.IsDirectory)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "report.txt")
	assert.Contains(t, names, "notes.md")
	assert.Contains(t, names, "empty")
}

// TestFindFilesByPatternOmitsDotEntries matches spec §4.4's "literal
// patterns short-circuit": a non-"*" style query is a single-name
// lookup, so it never carries the synthetic "." / ".." pair.
func TestFindFilesByPatternOmitsDotEntries(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	entries, status := h.FindFilesWithPattern(0, `\docs`, "report.txt")
	require.Equal(t, vfsstatus.Success, status)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.txt", entries[0].Name)
}

func TestFindFilesUsesHandleOverRawPath(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	fh, status := h.CreateFile(`\docs`, DispositionOpen, CreateOptions{})
	require.Equal(t, vfsstatus.Success, status)

	entries, status := h.FindFiles(fh, `\this\path\is\ignored`)
	require.Equal(t, vfsstatus.Success, status)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "report.txt")
}

func TestReadFileReturnsContent(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	fh, status := h.CreateFile(`\docs\report.txt`, DispositionOpen, CreateOptions{})
	require.Equal(t, vfsstatus.Success, status)

	dest := make([]byte, 16)
	n, status := h.ReadFile(fh, 0, dest)
	require.Equal(t, vfsstatus.Success, status)
	assert.Equal(t, "hello", string(dest[:n]))
}

func TestReadFileTrimZeroLooksLikeNotFound(t *testing.T) {
	idx := index.New()
	idx.InsertFile(`\gone.bin`, index.EntryMeta{MFTNumber: 1, Size: 4})
	fake := &mfttest.Fake{Records: []mfttest.Entry{{}, {Data: []byte{0, 0, 0, 0}}}}
	h := New(idx, fake, nil)

	fh, status := h.CreateFile(`\gone.bin`, DispositionOpen, CreateOptions{})
	require.Equal(t, vfsstatus.Success, status)

	dest := make([]byte, 4)
	_, status = h.ReadFile(fh, 0, dest)
	assert.Equal(t, vfsstatus.NotFound, status)
}

func TestReadFileOnDirectoryFails(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	fh, status := h.CreateFile(`\docs`, DispositionOpen, CreateOptions{})
	require.Equal(t, vfsstatus.Success, status)

	dest := make([]byte, 4)
	_, status = h.ReadFile(fh, 0, dest)
	assert.Equal(t, vfsstatus.InvalidRequest, status)
}

func TestReadFileUnknownHandleIsNotFound(t *testing.T) {
	h := New(buildTestIndex(), buildTestFake(), nil)
	dest := make([]byte, 4)
	_, status := h.ReadFile(999, 0, dest)
	assert.Equal(t, vfsstatus.NotFound, status)
}

func TestGlobMatchCI(t *testing.T) {
	assert.True(t, globMatchCI("*.txt", "REPORT.TXT"))
	assert.True(t, globMatchCI("rep?rt.txt", "report.txt"))
	assert.False(t, globMatchCI("*.md", "report.txt"))
	assert.True(t, globMatchCI("*", "anything"))
}
