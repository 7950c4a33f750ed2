package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"combgraph/internal/snapshot"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "snapshot", Short: "trigger or restore a network snapshot"}
	cmd.AddCommand(snapshotTakeCmd())
	cmd.AddCommand(snapshotRollbackCmd())
	return cmd
}

func snapshotTakeCmd() *cobra.Command {
	var blockNum uint64
	c := &cobra.Command{
		Use:   "take [prefix]",
		Short: "record a point-in-time snapshot for a network at a block height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			facility, err := snapshot.NewFileFacility(cfg.Registry.DataDir + "/snapshots")
			if err != nil {
				return err
			}
			name := snapshot.NameFor(args[0], blockNum)
			if err := facility.Snapshot(context.Background(), name); err != nil {
				return err
			}
			fmt.Printf("snapshot recorded: %s\n", name)
			return nil
		},
	}
	c.Flags().Uint64Var(&blockNum, "block", 0, "block number the snapshot is taken at")
	return c
}

func snapshotRollbackCmd() *cobra.Command {
	var blockNum uint64
	c := &cobra.Command{
		Use:   "rollback [prefix]",
		Short: "restore a network to a previously recorded snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			facility, err := snapshot.NewFileFacility(cfg.Registry.DataDir + "/snapshots")
			if err != nil {
				return err
			}
			name := snapshot.NameFor(args[0], blockNum)
			if err := facility.Rollback(context.Background(), name); err != nil {
				return err
			}
			fmt.Printf("rolled back to: %s\n", name)
			return nil
		},
	}
	c.Flags().Uint64Var(&blockNum, "block", 0, "block number to roll back to")
	return c
}
