package mft

import "github.com/ununlink/ununlink/internal/pathkey"

// maxPathDepth bounds the parent-chasing walk. NTFS trees are nowhere
// near this deep in practice; it exists purely so a corrupt or
// adversarial parent chain can't spin forever.
const maxPathDepth = 512

// Path reconstructs rec's full path by walking FILE_NAME parent
// references up to the volume root (record 5), consulting cache for
// ancestors this worker has already resolved. If the chain is broken,
// cyclic, or too deep, it returns just rec's own name (or "" if even
// that is unknown) with ok=false -- the caller turns that into a
// basename-only Candidate (spec §4.2 step 4).
func (r *VolumeReader) Path(rec Record, cache *Cache) (string, bool) {
	if !rec.hasParent {
		return rec.name, false
	}
	if cache == nil {
		cache = NewCache()
	}

	var segments []string
	visited := make(map[uint64]bool)
	cur := rec
	for depth := 0; ; depth++ {
		if depth > maxPathDepth {
			return rec.name, false
		}
		if !cur.hasParent || cur.Number == cur.parentRef {
			// Reached (or looped onto) the volume root.
			break
		}
		if visited[cur.Number] {
			return rec.name, false
		}
		visited[cur.Number] = true

		if cached, ok := cache.resolved[cur.parentRef]; ok {
			segments = append(segments, cur.name)
			full := cached + pathkey.Separator + joinReverse(segments)
			cache.resolved[rec.Number] = full
			return full, true
		}

		segments = append(segments, cur.name)

		parent, ok := r.GetRecord(cur.parentRef)
		if !ok || !parent.InUse {
			return rec.name, false
		}
		cur = parent
	}

	full := pathkey.Root + joinReverse(segments)
	cache.resolved[rec.Number] = full
	return full, true
}

// joinReverse joins segments (collected child-to-parent) in
// parent-to-child order with the path separator.
func joinReverse(segments []string) string {
	out := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if i != len(segments)-1 {
			out += pathkey.Separator
		}
		out += segments[i]
	}
	return out
}
