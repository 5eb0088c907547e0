/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/detector"
)

func newSnapshotCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect persisted snapshot documents and journals",
	}
	cmd.AddCommand(newSnapshotScanCmd(configPath))
	return cmd
}

func newSnapshotScanCmd(configPath *string) *cobra.Command {
	var journalPath string
	var thresholdMS int64

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a delivery journal for out-of-order/drift anomalies after the fact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			threshold := thresholdMS
			if threshold == 0 {
				threshold = cfg.DriftThresholdMS
			}
			d := detector.New(threshold, nil, nil)
			anomalies, err := d.ScanLog(journalPath)
			if err != nil {
				return fmt.Errorf("scan log: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(anomalies)
		},
	}
	cmd.Flags().StringVar(&journalPath, "file", "", "path to a delivery journal JSONL file (required)")
	cmd.Flags().Int64Var(&thresholdMS, "drift-threshold-ms", 0, "override the configured drift threshold")
	cmd.MarkFlagRequired("file")
	return cmd
}
