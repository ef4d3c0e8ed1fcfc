// Command ununlink recovers deleted files from an NTFS volume by
// scanning its Master File Table directly and serving the recovered
// tree as a read-only virtual drive, without writing anything back to
// the source volume (spec §1).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.StandardLogger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "ununlink",
		Short: "Recover deleted files from an NTFS volume via MFT scanning",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newDrivesCmd())
	root.AddCommand(newMountCmd())
	root.AddCommand(newFilelistCmd())
	root.AddCommand(newCopyCmd())
	return root
}
