// Command chronomesh drives the distributed-delivery simulator from the
// command line: seed a scenario, take snapshots, scan a journal for
// anomalies, or serve Prometheus metrics.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"github.com/spf13/cobra"

	"github.com/chronomesh/chronomesh/cmn/cos"
	"github.com/chronomesh/chronomesh/cmn/nlog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		cos.ExitLogf("%v", err)
	}
	nlog.Flush(false)
}

func rootCmd() *cobra.Command {
	var logDir string
	var configPath string

	cmd := &cobra.Command{
		Use:   "chronomesh",
		Short: "Hybrid-logical-clock distributed-delivery simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			nlog.SetLogDirRole(logDir, "cli")
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for nlog output (empty: stderr only)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config overlay")

	cmd.AddCommand(
		newScenarioCmd(&configPath),
		newSnapshotCmd(&configPath),
		newMetricsCmd(&configPath),
	)
	return cmd
}
