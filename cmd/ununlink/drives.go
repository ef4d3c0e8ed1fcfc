package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ununlink/ununlink/internal/drives"
)

func newDrivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drives",
		Short: "List local drives and whether they can be scanned",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := drives.Discover()
			if err != nil {
				return err
			}
			for _, d := range list {
				status := "unsupported"
				if d.IsNTFS {
					status = "ok"
				}
				fmt.Printf("%-4s %-12s %-6s %10s free / %10s total  [%s]\n",
					d.Letter, d.Label, d.FileSystem, humanizeBytes(d.FreeBytes), humanizeBytes(d.TotalBytes), status)
			}
			return nil
		},
	}
}

// humanizeBytes renders a byte count the way the original tool's drive
// picker did: binary units, one decimal place, capped at TB.
func humanizeBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit && exp < 3; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}
