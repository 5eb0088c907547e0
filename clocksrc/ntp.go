// Package clocksrc is a diagnostic-only bridge to a real NTP source. It
// never feeds into the HLC -- spec.md's Non-goals are explicit that the HLC
// compensates for skew, it does not correct it. This package exists so an
// operator can ask "how far off is this node's configured offset from a
// real NTP measurement", printed alongside scenario output.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package clocksrc

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

const defaultPool = "pool.ntp.org"

// Offset is one NTP query's result: how far the local wall clock is from
// the queried server, and the round-trip the measurement cost.
type Offset struct {
	Server        string        `json:"server"`
	ClockOffsetMS int64         `json:"clock_offset_ms"`
	RTT           time.Duration `json:"rtt"`
}

// QueryOffset performs one NTP query against server (defaultPool if empty)
// and reports the measured offset. It does not retry; callers that want
// resilience loop externally.
func QueryOffset(ctx context.Context, server string) (Offset, error) {
	if server == "" {
		server = defaultPool
	}
	opts := ntp.QueryOptions{Timeout: 5 * time.Second}
	resp, err := ntp.QueryWithOptions(server, opts)
	if err != nil {
		return Offset{}, err
	}
	return Offset{
		Server:        server,
		ClockOffsetMS: resp.ClockOffset.Milliseconds(),
		RTT:           resp.RTT,
	}, nil
}

// CompareToConfiguredSkew reports the delta, in milliseconds, between a
// region's configured continent_offsets skew and a live NTP measurement --
// purely informational (spec.md §9's diagnostic, never fed back into a
// Clock's PhysicalNowFn).
func CompareToConfiguredSkew(ctx context.Context, server string, configuredOffsetMS int64) (deltaMS int64, measured Offset, err error) {
	measured, err = QueryOffset(ctx, server)
	if err != nil {
		return 0, Offset{}, err
	}
	return configuredOffsetMS - measured.ClockOffsetMS, measured, nil
}
