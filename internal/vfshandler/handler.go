// Package vfshandler implements the read-only virtual filesystem that
// is mounted at a drive letter once a scan finishes: it answers every
// file-system operation out of a frozen internal/index.DeletedIndex and
// internal/mft.Reader, never the live volume directly (spec §4.4).
//
// Its Read path is modeled on the teacher's fs.MemRegularFile.Read
// (clamp offset, slice, copy into dest) generalized to tolerate a
// reader whose underlying bytes can legitimately disappear mid-flight,
// since the whole point of this filesystem is serving content that the
// live volume may already have overwritten.
package vfshandler

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ununlink/ununlink/internal/index"
	"github.com/ununlink/ununlink/internal/mft"
	"github.com/ununlink/ununlink/internal/pathkey"
	"github.com/ununlink/ununlink/internal/vfsstatus"
)

// VolumeInfo is the fixed, synthetic volume metadata reported to hosts
// that ask for it (spec §4.4 "GetVolumeInformation").
type VolumeInfo struct {
	Label            string
	SerialNumber     uint32
	MaxComponentLen  uint32
	FileSystemName   string
	TotalBytes       uint64
	FreeBytes        uint64
}

// DefaultVolumeInfo matches what the original tool reported: a
// read-only, fixed-capacity synthetic NTFS volume (spec §4.4).
var DefaultVolumeInfo = VolumeInfo{
	Label:           "ununlink",
	SerialNumber:    0x554e4c4b, // "UNLK"
	MaxComponentLen: 255,
	FileSystemName:  "NTFS",
	TotalBytes:      1 << 40,
	FreeBytes:       0,
}

// Handler is the mounted filesystem's implementation. It holds a
// read-only view of a finished scan (Index) and the same mft.Reader the
// scan used, so file reads can still pull bytes straight from disk.
type Handler struct {
	mu     sync.RWMutex
	idx    *index.DeletedIndex
	reader mft.Reader
	vol    VolumeInfo
	log    *logrus.Logger

	mountedAt time.Time

	handleMu   sync.Mutex
	handles    map[uint64]*HandleCtx
	nextHandle uint64
}

// HandleCtx is the per-open-handle state spec §3 describes: whether the
// open was a directory, the MFT number remembered for a file open (used
// by ReadFile so it never has to re-resolve the path), and the original
// path text the open was made against. It is created by CreateFile and
// destroyed by Close; it is never shared across opens.
type HandleCtx struct {
	IsDir        bool
	MFTNumber    uint64
	HasMFTNumber bool
	OriginalPath string
}

// New returns a Handler serving idx and backed by reader for file reads.
func New(idx *index.DeletedIndex, reader mft.Reader, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{idx: idx, reader: reader, vol: DefaultVolumeInfo, log: log, handles: make(map[uint64]*HandleCtx)}
}

// openHandle allocates a handle id and stores ctx under it.
func (h *Handler) openHandle(ctx HandleCtx) uint64 {
	h.handleMu.Lock()
	defer h.handleMu.Unlock()
	h.nextHandle++
	id := h.nextHandle
	h.handles[id] = &ctx
	return id
}

// handle looks up a previously opened HandleCtx.
func (h *Handler) handle(id uint64) (HandleCtx, bool) {
	h.handleMu.Lock()
	defer h.handleMu.Unlock()
	ctx, ok := h.handles[id]
	if !ok {
		return HandleCtx{}, false
	}
	return *ctx, true
}

// Close destroys the HandleCtx created by a matching CreateFile (spec
// §3 "HandleCtx is created on open and destroyed on close").
func (h *Handler) Close(id uint64) {
	h.handleMu.Lock()
	delete(h.handles, id)
	h.handleMu.Unlock()
}

// Mounted records the mount time and logs that serving has begun (spec
// §4.4 "Mounted").
func (h *Handler) Mounted() {
	h.mu.Lock()
	h.mountedAt = time.Now()
	h.mu.Unlock()
	h.log.Info("vfshandler: mounted")
}

// Unmounted logs that the filesystem is going away (spec §4.4
// "Unmounted"). It does not mutate Index -- the index is never touched
// after the scan that built it (spec §3).
func (h *Handler) Unmounted() {
	h.log.Info("vfshandler: unmounted")
}

// VolumeInformation returns the fixed synthetic volume descriptor.
func (h *Handler) VolumeInformation() VolumeInfo {
	return h.vol
}

// DiskFreeSpace returns the fixed total/free byte counts advertised for
// the mounted volume (spec §4.4 "GetDiskFreeSpace"): a read-only
// recovery filesystem never has free space to offer.
func (h *Handler) DiskFreeSpace() (total, free uint64) {
	return h.vol.TotalBytes, h.vol.FreeBytes
}

// lookup resolves a raw path to its PathKey and node, taking the read
// lock (spec §4.4 treats the index as read-only for the handler's
// entire lifetime, but the lock still guards against a racing rebuild
// in tests).
func (h *Handler) lookup(rawPath string) (string, index.EntryOrDir, bool) {
	key := pathkey.Normalize(rawPath)
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.idx.Get(key)
	return key, e, ok
}

// CreateDisposition mirrors the handful of NT creation dispositions
// spec §4.4's "Open semantics" table distinguishes.
type CreateDisposition int

const (
	DispositionOpen         CreateDisposition = iota // OPEN_EXISTING
	DispositionOpenIf                                // OPEN_ALWAYS
	DispositionCreate                                // CREATE_NEW
	DispositionCreateAlways                          // CREATE_ALWAYS / SUPERSEDE
	DispositionOverwrite                             // TRUNCATE_EXISTING / OVERWRITE
	DispositionOverwriteIf                           // OVERWRITE_IF
)

// CreateOptions is the subset of NT create options/flags spec §4.4's
// table inspects. ReparsePoint is accepted and never examined again
// (the virtual tree has no reparse points); it exists only so a caller
// can pass FILE_OPEN_REPARSE_POINT through without being rejected.
type CreateOptions struct {
	DirectoryFile    bool // FILE_DIRECTORY_FILE
	NonDirectoryFile bool // FILE_NON_DIRECTORY_FILE
	DeleteOnClose    bool
	ReparsePoint     bool
	WantsWrite       bool // any write/modify access requested
}

// CreateFile implements the CreateFile-disposition contract of spec
// §4.4's "Open semantics" table in full: every row maps to exactly one
// branch below, in the table's own order. On success it allocates a
// HandleCtx (spec §3) and returns its handle id; rawPath is remembered
// verbatim as HandleCtx.OriginalPath.
func (h *Handler) CreateFile(rawPath string, disposition CreateDisposition, opts CreateOptions) (uint64, vfsstatus.Status) {
	if opts.WantsWrite {
		return 0, vfsstatus.AccessDenied
	}
	switch disposition {
	case DispositionCreate, DispositionCreateAlways, DispositionOverwrite, DispositionOverwriteIf:
		return 0, vfsstatus.AccessDenied
	}
	if opts.DeleteOnClose {
		return 0, vfsstatus.AccessDenied
	}

	key, e, ok := h.lookup(rawPath)

	if pathkey.IsRoot(key) {
		return h.openHandle(HandleCtx{IsDir: true, OriginalPath: rawPath}), vfsstatus.Success
	}

	if ok && e.IsDir {
		if opts.NonDirectoryFile {
			return 0, vfsstatus.FileIsDirectory
		}
		return h.openHandle(HandleCtx{IsDir: true, OriginalPath: rawPath}), vfsstatus.Success
	}

	if ok {
		// ok && !e.IsDir: target is a File.
		if opts.DirectoryFile {
			return 0, vfsstatus.NotADirectory
		}
		switch disposition {
		case DispositionOpen, DispositionOpenIf:
			ctx := HandleCtx{MFTNumber: e.File.MFTNumber, HasMFTNumber: true, OriginalPath: rawPath}
			return h.openHandle(ctx), vfsstatus.Success
		default:
			return 0, vfsstatus.AccessDenied
		}
	}

	// Target absent.
	switch disposition {
	case DispositionOpen, DispositionOpenIf:
		return 0, vfsstatus.NotFound
	default:
		return 0, vfsstatus.AccessDenied
	}
}

// FileInfo is what GetFileInformation reports for one node.
type FileInfo struct {
	IsDirectory bool
	Size        uint64
	Created     time.Time
	Modified    time.Time
	Accessed    time.Time
	FileIndex   uint64
}

// GetFileInformation implements spec §4.4 "GetFileInformation".
func (h *Handler) GetFileInformation(rawPath string) (FileInfo, vfsstatus.Status) {
	key, e, ok := h.lookup(rawPath)
	if !ok {
		return FileInfo{}, vfsstatus.NotFound
	}
	info := FileInfo{IsDirectory: e.IsDir, FileIndex: fileIndexFromKey(key)}
	if !e.IsDir {
		info.Size = e.File.Size
		info.Created = derefTime(e.File.Created)
		info.Modified = derefTime(e.File.Modified)
		info.Accessed = derefTime(e.File.Accessed)
	}
	return info, vfsstatus.Success
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// fileIndexFromKey derives a stable pseudo file-index from a PathKey via
// FNV-1a, mapping a zero hash to 1 so callers that treat 0 as "no
// index" never see a valid entry collide with that sentinel.
func fileIndexFromKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	if sum == 0 {
		return 1
	}
	return sum
}

// DirEntry is one child reported by FindFiles / FindFilesWithPattern.
type DirEntry struct {
	Name string
	Info FileInfo
}

// FindFiles lists every child of rawPath (spec §4.4 "FindFiles"). handle
// is the id returned by a prior CreateFile (0 if the caller has none);
// when it names an open directory, its HandleCtx's path is used instead
// of re-deriving one from rawPath. When the root's own child list is
// empty, the root listing falls back to scanning first-level index keys
// (spec §9).
func (h *Handler) FindFiles(handle uint64, rawPath string) ([]DirEntry, vfsstatus.Status) {
	return h.FindFilesWithPattern(handle, rawPath, "*")
}

// stripListingWildcard strips a trailing `\*` or `\*.*` that some hosts
// attach to a directory-listing path, recovering the directory key
// (spec §4.4 "Path translation").
func stripListingWildcard(raw string) string {
	d := pathkey.Display(raw)
	switch {
	case strings.HasSuffix(d, `\*.*`):
		return d[:len(d)-len(`\*.*`)]
	case strings.HasSuffix(d, `\*`):
		return d[:len(d)-len(`\*`)]
	default:
		return d
	}
}

// FindFilesWithPattern implements spec §4.4 "FindFilesWithPattern":
// glob-style '*'/'?' matching, case-insensitive, against each child's
// display name (property P4), plus the synthesized `.`/`..` entries and
// root-fallback listing spec §4.4 steps 3-5 and §9 describe.
func (h *Handler) FindFilesWithPattern(handle uint64, rawPath, pattern string) ([]DirEntry, vfsstatus.Status) {
	var key string
	fromHandle := false
	if ctx, ok := h.handle(handle); ok && ctx.IsDir {
		key = pathkey.Normalize(ctx.OriginalPath)
		fromHandle = true
	} else {
		key = pathkey.Normalize(stripListingWildcard(rawPath))
	}

	h.mu.RLock()
	e, ok := h.idx.Get(key)
	h.mu.RUnlock()
	if !fromHandle && (!ok || !e.IsDir) {
		return nil, vfsstatus.InvalidRequest
	}

	var out []DirEntry
	includeDots := pattern == "" || pattern == "*" || pattern == "*.*"
	if includeDots {
		out = append(out,
			DirEntry{Name: ".", Info: FileInfo{IsDirectory: true, FileIndex: fileIndexFromKey(key)}},
			DirEntry{Name: "..", Info: FileInfo{IsDirectory: true, FileIndex: fileIndexFromKey(pathkey.Parent(key))}},
		)
	}

	h.mu.RLock()
	names := h.idx.ListChildren(key)
	h.mu.RUnlock()
	if len(names) == 0 && pathkey.IsRoot(key) {
		names = h.rootFallbackNames()
	}

	literal := !strings.ContainsAny(pattern, "*?")
	for _, name := range names {
		if !globMatchCI(pattern, name) {
			continue
		}
		childKey := pathkey.Join(key, name)
		h.mu.RLock()
		childEntry, ok := h.idx.Get(childKey)
		h.mu.RUnlock()

		var info FileInfo
		if !ok {
			// A root-child surfaced only via the fallback scan may have
			// no node of its own yet; still present it as a directory
			// stub (spec §4.4 step 5).
			info = FileInfo{IsDirectory: true, FileIndex: fileIndexFromKey(childKey)}
		} else {
			info = FileInfo{IsDirectory: childEntry.IsDir, FileIndex: fileIndexFromKey(childKey)}
			if !childEntry.IsDir {
				info.Size = childEntry.File.Size
				info.Created = derefTime(childEntry.File.Created)
				info.Modified = derefTime(childEntry.File.Modified)
				info.Accessed = derefTime(childEntry.File.Accessed)
			}
		}
		out = append(out, DirEntry{Name: name, Info: info})
		if literal {
			break
		}
	}
	return out, vfsstatus.Success
}

// rootFallbackNames derives a synthetic first-level child set by
// scanning every node key and taking each key's first path component,
// sorted and deduplicated (spec §4.4 step 4 / §9 "Enumeration-of-root
// fallback"): covers an index whose root's children map was never
// populated through normal insertion.
func (h *Handler) rootFallbackNames() []string {
	h.mu.RLock()
	keys := h.idx.Keys()
	h.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		comps := pathkey.Components(k)
		if len(comps) == 0 {
			continue
		}
		first := comps[0]
		if seen[first] {
			continue
		}
		seen[first] = true
		out = append(out, first)
	}
	sort.Strings(out)
	return out
}

// GetFileSecurity / SetFileSecurity: the mounted volume carries no real
// ACLs, so security queries are answered with a fixed, permissive
// descriptor and mutation is refused (spec §4.4, property P5).
func (h *Handler) GetFileSecurity(rawPath string) ([]byte, vfsstatus.Status) {
	if _, _, ok := h.lookup(rawPath); !ok {
		return nil, vfsstatus.NotFound
	}
	return []byte{}, vfsstatus.Success
}

func (h *Handler) SetFileSecurity(rawPath string) vfsstatus.Status {
	return vfsstatus.AccessDenied
}

// WriteFile always fails: this filesystem is read-only end to end
// (spec §4.4 property P5, Non-goals).
func (h *Handler) WriteFile(rawPath string) vfsstatus.Status {
	return vfsstatus.AccessDenied
}

// rawDeviceReadError bundles the detail string used for the panic-
// isolation log line in ReadFile.
func rawDeviceReadError(rawPath string, r interface{}) error {
	return fmt.Errorf("vfshandler: panic reading %q: %v", rawPath, r)
}
