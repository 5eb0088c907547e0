/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/chronomesh/chronomesh/cmn/nlog"
	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/orchestrator"
)

func newMetricsCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "metrics-serve",
		Short: "Run an orchestrator and expose its /metrics endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.MetricsAddr = addr
			}
			if cfg.MetricsAddr == "" {
				return fmt.Errorf("no --addr given and config has no metrics_addr set")
			}

			orch, err := orchestrator.New(cfg)
			if err != nil {
				return fmt.Errorf("init orchestrator: %w", err)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", orch.Metrics().Handler())
			nlog.Infof("metrics-serve: listening on %s", cfg.MetricsAddr)
			return http.ListenAndServe(cfg.MetricsAddr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config metrics_addr)")
	return cmd
}
