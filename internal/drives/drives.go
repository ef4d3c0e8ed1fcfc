// Package drives enumerates local NTFS volumes eligible for recovery
// scanning (spec §4.1 "Drive Discovery").
package drives

// Drive describes one local volume a scan can target.
type Drive struct {
	Letter       string // e.g. "C:"
	Label        string
	FileSystem   string
	TotalBytes   uint64
	FreeBytes    uint64
	IsNTFS       bool
}

// Discover returns every fixed local drive the current platform can
// enumerate, in drive-letter order. Non-NTFS volumes are still
// returned (with IsNTFS false) so a CLI can explain why they were
// skipped, matching the original tool's drive-picker behavior of
// listing everything but disabling the unsupported ones.
func Discover() ([]Drive, error) {
	return discoverPlatform()
}
