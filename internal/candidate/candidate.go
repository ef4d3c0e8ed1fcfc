// Package candidate defines the transient record scanner workers emit
// and the index builder consumes (spec §3 "Candidate"). It has no
// behavior of its own; it exists only to give scanner and index
// independent packages a shared vocabulary without an import cycle.
package candidate

import "time"

// Candidate is produced by a scanner worker for one unused MFT record.
// Path may be basename-only (no interior separator) when parent linkage
// could not be reconstructed.
type Candidate struct {
	MFTNumber uint64
	Path      string
	Size      uint64
	IsDir     bool
	Created   *time.Time
	Modified  *time.Time
	Accessed  *time.Time
}
