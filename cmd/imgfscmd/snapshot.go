package main

import (
	"fmt"
	"log"

	"imgfs/internal/config"
	"imgfs/internal/imgfs"
	"imgfs/internal/service"
	"imgfs/internal/snapshot"
	"imgfs/internal/storage"

	"github.com/spf13/cobra"
)

func snapshotStorage(cmd *cobra.Command) (storage.SnapshotStorage, error) {
	cfg, err := config.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	snapshots, err := snapshot.NewStorage(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		return nil, fmt.Errorf("%w: set SNAPSHOT_BACKEND to local or s3", service.ErrSnapshotsDisabled)
	}
	return snapshots, nil
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <imgFS_filename>",
		Short: "Copy an imgFS file to the configured snapshot backend",
		Long: "Copy an imgFS file to the backend selected by the SNAPSHOT_* environment.\n" +
			"The file must not be held open by a running server; use POST /imgfs/snapshot there.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := snapshotStorage(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(args[0], imgfs.ReadOnly)
			if err != nil {
				return err
			}
			defer st.Close()

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			snap, err := service.New(st, snapshots, logger).Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", snap.Key, snap.Digest, snap.Size)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot_key> <imgFS_filename>",
		Short: "Replace an imgFS file with a stored snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := snapshotStorage(cmd)
			if err != nil {
				return err
			}
			n, err := service.Restore(cmd.Context(), snapshots, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d bytes)\n", args[1], n)
			return nil
		},
	}
}
