package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ununlink/ununlink/internal/cgofuseadapter"
	"github.com/ununlink/ununlink/internal/mount"
)

func newMountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <drive-letter>",
		Short: "Scan a drive and mount its recovered files read-only at R:",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elevated, err := mount.IsElevated()
			if err != nil {
				return fmt.Errorf("checking elevation: %w", err)
			}
			if !elevated {
				return fmt.Errorf("ununlink mount requires an elevated (administrator) process")
			}

			driveLetter := args[0]
			session := &mount.Session{
				DriveLetter: driveLetter,
				Open:        mount.OpenVolume,
				Mount:       cgofuseadapter.New(),
				Log:         log,
				Events:      make(chan mount.Snapshot, 64),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go reportProgress(session.Events)

			return session.Run(ctx)
		},
	}
	return cmd
}

func reportProgress(events <-chan mount.Snapshot) {
	for snap := range events {
		if snap.Done {
			if snap.Aborted {
				fmt.Println("scan aborted")
			} else {
				fmt.Printf("scan completed: %d found of %d records\n", snap.Found, snap.Total)
			}
			return
		}
		fmt.Printf("\rscanning: %d/%d (found %d) eta %s", snap.Processed, snap.Total, snap.Found, snap.ETA.Round(1e9))
	}
}
