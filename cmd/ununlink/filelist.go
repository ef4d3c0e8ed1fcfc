package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newFilelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filelist <mounted-path> [limit]",
		Short: "List recovered files under an already-mounted ununlink drive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := 0
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid limit %q: %w", args[1], err)
				}
				limit = n
			}

			count := 0
			err := filepath.WalkDir(args[0], func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil // recovered trees can contain entries that fail mid-walk; skip and keep going
				}
				if d.IsDir() {
					return nil
				}
				fmt.Println(path)
				count++
				if limit > 0 && count >= limit {
					return filepath.SkipAll
				}
				return nil
			})
			return err
		},
	}
}
