// Package snapshot implements the deterministic merge of per-node local
// state into one global view (spec.md §4.4).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package snapshot

import (
	"sort"

	"github.com/chronomesh/chronomesh/core/meta"
)

// MergedEntry is one resolved package_id -> state mapping, carrying the
// node that won the tie-break (the region-aware merge uses the
// orchestrator's HierEntry, which adds the region).
type MergedEntry struct {
	HLC     meta.HLCStamp `json:"hlc"`
	Payload meta.Value    `json:"payload"`
	Node    string        `json:"node"`
}

// Coordinator holds per-node state snapshots recorded via RecordLocal and
// merges them deterministically. A fresh Coordinator is constructed for
// every region-local snapshot call (spec.md §4.5): "Construct a fresh
// SnapshotCoordinator".
type Coordinator struct {
	byNode map[string]map[string]meta.StateEntry
}

func New() *Coordinator {
	return &Coordinator{byNode: make(map[string]map[string]meta.StateEntry)}
}

// RecordLocal deep-copies state at record time, so later mutation of the
// node's live state cannot retroactively change a recorded snapshot.
func (c *Coordinator) RecordLocal(nodeID string, state map[string]meta.StateEntry) {
	cp := make(map[string]meta.StateEntry, len(state))
	for k, v := range state {
		cp[k] = v
	}
	c.byNode[nodeID] = cp
}

func (c *Coordinator) Reset() { c.byNode = make(map[string]map[string]meta.StateEntry) }

// MergeSnapshots implements spec.md §4.4 merge_snapshots: for each
// package_id, keep the greatest (phys, cnt); ties break on the
// lexicographically smaller node id. Deterministic and idempotent: merging
// the merge output again (itself a map keyed by node==winner) reproduces
// the same result.
func (c *Coordinator) MergeSnapshots() map[string]MergedEntry {
	out := make(map[string]MergedEntry)
	// iterate nodes in sorted order so that, for equal (hlc, node) pairs
	// across calls, map build order never matters to the final result.
	nodeIDs := make([]string, 0, len(c.byNode))
	for id := range c.byNode {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		for pkg, entry := range c.byNode[nodeID] {
			cur, ok := out[pkg]
			if !ok {
				out[pkg] = MergedEntry{HLC: entry.HLC, Payload: entry.Payload, Node: entry.Node}
				continue
			}
			// order by (phys, cnt) only: the stamp's node id is left out so
			// that equal (phys, cnt) falls through to the node-id tie-break.
			a, b := entry.HLC, cur.HLC
			a.Node, b.Node = "", ""
			switch a.Compare(b) {
			case 1:
				out[pkg] = MergedEntry{HLC: entry.HLC, Payload: entry.Payload, Node: entry.Node}
			case 0:
				if entry.Node < cur.Node {
					out[pkg] = MergedEntry{HLC: entry.HLC, Payload: entry.Payload, Node: entry.Node}
				}
			}
		}
	}
	return out
}
