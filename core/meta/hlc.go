// Package meta holds the wire/value types shared by clock, node, detector,
// snapshot and orchestrator: the hybrid-logical-clock stamp, the schemaless
// payload value, messages, and the journal record shapes.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package meta

import "fmt"

// HLCStamp is a hybrid logical clock reading: physical milliseconds, a
// logical counter that advances when physical time stands still or goes
// backward, and the id of the node that produced it (the tie-breaker).
type HLCStamp struct {
	Phys int64  `json:"phys"`
	Cnt  uint64 `json:"cnt"`
	Node string `json:"node"`
}

// Compare returns -1, 0, or 1 the way bytes.Compare does, ordering first by
// Phys, then Cnt, then Node lexicographically.
func (s HLCStamp) Compare(o HLCStamp) int {
	switch {
	case s.Phys < o.Phys:
		return -1
	case s.Phys > o.Phys:
		return 1
	}
	switch {
	case s.Cnt < o.Cnt:
		return -1
	case s.Cnt > o.Cnt:
		return 1
	}
	switch {
	case s.Node < o.Node:
		return -1
	case s.Node > o.Node:
		return 1
	default:
		return 0
	}
}

func (s HLCStamp) Less(o HLCStamp) bool    { return s.Compare(o) < 0 }
func (s HLCStamp) Greater(o HLCStamp) bool { return s.Compare(o) > 0 }
func (s HLCStamp) Equal(o HLCStamp) bool   { return s.Compare(o) == 0 }

func (s HLCStamp) String() string {
	return fmt.Sprintf("(%d,%d,%s)", s.Phys, s.Cnt, s.Node)
}

func (s HLCStamp) IsZero() bool { return s.Phys == 0 && s.Cnt == 0 && s.Node == "" }
