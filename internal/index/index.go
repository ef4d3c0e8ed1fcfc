// Package index builds and serves the DeletedIndex: the staged,
// de-duplicating tree of recovered entries described in spec §3/§4.3.
//
// The child-tracking shape (an insertion-ordered name list paired with a
// case-insensitive lookup set per directory) is modeled on the teacher's
// inodeChildren type (see fs/inode_children.go in this module's history):
// a small get/set/list API around a directory's children, generalized
// here to also enforce case-insensitive uniqueness, which a POSIX
// in-memory tree never had to worry about.
package index

import (
	"strings"
	"time"

	"github.com/ununlink/ununlink/internal/pathkey"
)

// EntryMeta is the metadata of a single recovered file (spec §3).
// Directories carry no EntryMeta.
type EntryMeta struct {
	MFTNumber uint64
	Size      uint64
	Created   *time.Time
	Modified  *time.Time
	Accessed  *time.Time
	// Name is the display name (original Unicode, case preserved).
	Name string
}

// EntryOrDir is the discriminated Dir/File variant from spec §3. It is
// a plain Go sum encoded as two fields rather than an interface
// hierarchy, matching the teacher's preference for small concrete
// structs over polymorphism where the set of cases is fixed.
type EntryOrDir struct {
	IsDir bool
	File  EntryMeta // zero value when IsDir is true
}

// Dir returns a directory node.
func Dir() EntryOrDir { return EntryOrDir{IsDir: true} }

// File returns a file node carrying meta.
func File(meta EntryMeta) EntryOrDir { return EntryOrDir{IsDir: false, File: meta} }

// childSet tracks one directory's children: an insertion-ordered list of
// display names, and the lowercased set used to enforce per-directory
// case-insensitive uniqueness. The two always have identical
// cardinality (index invariant P2/P3).
type childSet struct {
	names []string       // display-case names, insertion order
	ci    map[string]bool // lowercased name -> present
}

func newChildSet() *childSet {
	return &childSet{ci: make(map[string]bool)}
}

func (c *childSet) has(lower string) bool {
	return c.ci[lower]
}

func (c *childSet) add(display string) {
	lower := strings.ToLower(display)
	if c.ci[lower] {
		return
	}
	c.ci[lower] = true
	c.names = append(c.names, display)
}

// DeletedIndex is the three coherent maps of spec §3, keyed by PathKey.
// It is safe for concurrent readers once built; all mutation happens
// from a single goroutine (the Indexer), matching the "mutated only
// during scan" lifecycle spec §3 describes. Callers that need to read
// while the Indexer is still running must synchronize externally (see
// internal/vfshandler.Handler, which holds a sync.RWMutex around the
// index it serves).
type DeletedIndex struct {
	nodes    map[string]EntryOrDir
	children map[string]*childSet
}

// New returns a DeletedIndex with only the root node present.
func New() *DeletedIndex {
	idx := &DeletedIndex{
		nodes:    make(map[string]EntryOrDir),
		children: make(map[string]*childSet),
	}
	idx.nodes[pathkey.Root] = Dir()
	idx.children[pathkey.Root] = newChildSet()
	return idx
}

func (idx *DeletedIndex) ensureDir(key string) *childSet {
	if cs, ok := idx.children[key]; ok {
		return cs
	}
	idx.nodes[key] = Dir()
	cs := newChildSet()
	idx.children[key] = cs
	return cs
}

// EnsureDirsFromRoot creates every ancestor directory of dirPath (already
// a raw, not-yet-normalized candidate path) that does not yet exist,
// registering each level's name in its parent's child set. It is
// idempotent: calling it twice with the same path is a no-op the second
// time.
func (idx *DeletedIndex) EnsureDirsFromRoot(dirPath string) {
	display := pathkey.Display(dirPath)
	displayComps := resolveDotStack(splitDisplay(display))

	idx.ensureDir(pathkey.Root)

	parentKey := pathkey.Root
	acc := pathkey.Root
	for _, dispComp := range displayComps {
		idx.ensureDir(parentKey).add(dispComp)

		if acc == pathkey.Root {
			acc = pathkey.Root + dispComp
		} else {
			acc = acc + pathkey.Separator + dispComp
		}
		dirKey := pathkey.Normalize(acc)
		idx.ensureDir(dirKey)
		parentKey = dirKey
	}
}

func splitDisplay(display string) []string {
	trimmed := strings.TrimPrefix(display, pathkey.Separator)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, pathkey.Separator)
}

// resolveDotStack applies the same "." / ".." component-stack resolution
// as pathkey.Normalize, but preserves the original case of each
// surviving component.
func resolveDotStack(comps []string) []string {
	stack := make([]string, 0, len(comps))
	for _, c := range comps {
		switch c {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, c)
		}
	}
	return stack
}

// uniqueChildName resolves a case-insensitive collision in parentKey's
// child set by appending "_N" before the final dot-extension, N minimal
// starting at 2 (spec §4.3 step 3, property P3).
func uniqueChildName(cs *childSet, desired string) string {
	lower := strings.ToLower(desired)
	if !cs.has(lower) {
		return desired
	}
	base, ext := splitExt(desired)
	for n := 2; ; n++ {
		candidate := base + "_" + itoa(n) + ext
		if !cs.has(strings.ToLower(candidate)) {
			return candidate
		}
	}
}

func splitExt(name string) (base, ext string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, ""
	}
	return name[:dot], name[dot:]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// InsertFile places a file candidate in the tree. fullPath is the raw
// (not yet normalized) reconstructed path; meta.Name is overwritten with
// the final, disambiguated display name. Directories along the way are
// created as needed (spec §4.3 steps 2-3).
func (idx *DeletedIndex) InsertFile(fullPath string, meta EntryMeta) {
	display := pathkey.Display(fullPath)
	parentDisplay := parentOfDisplay(display)
	idx.EnsureDirsFromRoot(parentDisplay)

	parentKey := pathkey.Normalize(parentDisplay)
	cs := idx.ensureDir(parentKey)

	desired := baseOfDisplay(display)
	final := uniqueChildName(cs, desired)
	cs.add(final)

	meta.Name = final
	key := pathkey.Join(parentKey, final)
	idx.nodes[key] = File(meta)
}

// InsertDir places a directory candidate in the tree (spec §4.3 step 4).
func (idx *DeletedIndex) InsertDir(fullPath string) {
	idx.EnsureDirsFromRoot(fullPath)
}

func parentOfDisplay(display string) string {
	trimmed := strings.TrimPrefix(display, pathkey.Separator)
	i := strings.LastIndexByte(trimmed, '\\')
	if i < 0 {
		return pathkey.Root
	}
	return pathkey.Root + trimmed[:i]
}

func baseOfDisplay(display string) string {
	trimmed := strings.TrimPrefix(display, pathkey.Separator)
	i := strings.LastIndexByte(trimmed, '\\')
	if i < 0 {
		return trimmed
	}
	return trimmed[i+1:]
}

// Get looks up a node by (already normalized) key.
func (idx *DeletedIndex) Get(key string) (EntryOrDir, bool) {
	e, ok := idx.nodes[key]
	return e, ok
}

// ListChildren returns the insertion-ordered display names of key's
// children. A missing directory yields nil, not an error: spec §4.4
// step 4 treats an empty child list specially at the root.
func (idx *DeletedIndex) ListChildren(key string) []string {
	cs, ok := idx.children[key]
	if !ok {
		return nil
	}
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

// Keys returns every node key currently in the index. Used only by the
// root-enumeration fallback (spec §4.4 step 4 / §9).
func (idx *DeletedIndex) Keys() []string {
	out := make([]string, 0, len(idx.nodes))
	for k := range idx.nodes {
		out = append(out, k)
	}
	return out
}

// Len reports the number of nodes in the index (including root).
func (idx *DeletedIndex) Len() int {
	return len(idx.nodes)
}
