// Package mono provides low-level monotonic time for internal bookkeeping
// (hk's task run-time check) -- never used as the HLC's
// physical-time source, which is always injectable (see clock.PhysicalNowFn).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// start anchors every NanoTime() reading to time.Since, which reads Go's
// monotonic clock reading carried inside time.Time -- unlike UnixNano(),
// this is immune to wall-clock adjustments (NTP step, manual clock set).
var start = time.Now()

// NanoTime returns a monotonic nanosecond reading relative to process start;
// subtracting two NanoTime() values gives an elapsed duration unaffected by
// wall-clock adjustments.
func NanoTime() int64 { return int64(time.Since(start)) }
