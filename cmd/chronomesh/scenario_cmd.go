/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chronomesh/chronomesh/clocksrc"
	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/orchestrator"
	"github.com/chronomesh/chronomesh/scenario"
)

// ntpDiagnostic is printed alongside the scenario summary when --ntp-check
// is set: purely informational, never fed back into any node's clock
// (spec.md Non-goals -- the HLC compensates for skew, it does not correct
// it).
type ntpDiagnostic struct {
	Region             string `json:"region"`
	ConfiguredOffsetMS int64  `json:"configured_offset_ms"`
	Server             string `json:"server"`
	MeasuredOffsetMS   int64  `json:"measured_offset_ms"`
	DeltaMS            int64  `json:"delta_ms"`
	Error              string `json:"error,omitempty"`
}

type scenarioOutput struct {
	Summary        scenario.Summary `json:"summary"`
	NTPDiagnostics []ntpDiagnostic  `json:"ntp_diagnostics,omitempty"`
}

func newScenarioCmd(configPath *string) *cobra.Command {
	var scenarioFile string
	var ntpCheck bool
	var ntpServer string

	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Seed regions/nodes from a YAML spec and replay its sends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			b, err := os.ReadFile(scenarioFile)
			if err != nil {
				return fmt.Errorf("read scenario file: %w", err)
			}
			var spec scenario.Spec
			if err := yaml.Unmarshal(b, &spec); err != nil {
				return fmt.Errorf("parse scenario file: %w", err)
			}

			orch, err := orchestrator.New(cfg)
			if err != nil {
				return fmt.Errorf("init orchestrator: %w", err)
			}
			sum, err := scenario.Run(cmd.Context(), orch, spec)
			if err != nil {
				return fmt.Errorf("run scenario: %w", err)
			}

			out := scenarioOutput{Summary: sum}
			if ntpCheck {
				out.NTPDiagnostics = ntpDiagnostics(cmd, spec, ntpServer)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&scenarioFile, "file", "", "path to a scenario YAML spec (required)")
	cmd.Flags().BoolVar(&ntpCheck, "ntp-check", false, "report each region's configured skew against a live NTP measurement")
	cmd.Flags().StringVar(&ntpServer, "ntp-server", "", "NTP server to query (default pool.ntp.org)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// ntpDiagnostics queries one NTP offset per region in spec and compares it
// to that region's configured offset_ms. A query failure (no network, DNS)
// is reported as a diagnostic entry, not a command failure.
func ntpDiagnostics(cmd *cobra.Command, spec scenario.Spec, server string) []ntpDiagnostic {
	out := make([]ntpDiagnostic, 0, len(spec.Regions))
	for _, r := range spec.Regions {
		delta, measured, err := clocksrc.CompareToConfiguredSkew(cmd.Context(), server, r.OffsetMS)
		d := ntpDiagnostic{Region: r.ID, ConfiguredOffsetMS: r.OffsetMS}
		if err != nil {
			d.Error = err.Error()
		} else {
			d.Server = measured.Server
			d.MeasuredOffsetMS = measured.ClockOffsetMS
			d.DeltaMS = delta
		}
		out = append(out, d)
	}
	return out
}
