/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package orchestrator

import (
	"sort"

	"github.com/chronomesh/chronomesh/core/meta"
	"github.com/chronomesh/chronomesh/journal"
	"github.com/chronomesh/chronomesh/snapshot"
)

// NodeCut is one node's Chandy-Lamport cut: its state map plus whatever was
// still inflight at capture time (spec.md §4.5 global_snapshot).
type NodeCut struct {
	State    map[string]meta.StateEntry `json:"state"`
	Inflight map[string]meta.Message    `json:"inflight"`
}

// ChandySnapshotDoc is persisted to cfg.SnapshotChandyFile (spec.md §9
// Open Question #1: kept distinct from the hierarchical shape below).
type ChandySnapshotDoc struct {
	Version   int                `json:"version"`
	TakenAtMs int64              `json:"taken_at_ms"`
	Nodes     map[string]NodeCut `json:"nodes"`
}

const snapshotDocVersion = 1

// GlobalSnapshot captures every node's (state, inflight) pair under its own
// lock, in one pass -- a Chandy-Lamport-style causal cut: a message either
// shows up in its sender's inflight set or has already been applied at its
// destination, never both missing (spec.md §4.5/§8).
func (o *Orchestrator) GlobalSnapshot() (ChandySnapshotDoc, error) {
	o.mu.RLock()
	ids := make([]string, 0, len(o.nodes))
	for id := range o.nodes {
		ids = append(ids, id)
	}
	nodes := o.nodes
	o.mu.RUnlock()
	sort.Strings(ids)

	doc := ChandySnapshotDoc{Version: snapshotDocVersion, TakenAtMs: o.wallNowMs(), Nodes: make(map[string]NodeCut, len(ids))}
	for _, id := range ids {
		state, inflight := nodes[id].Snapshot()
		doc.Nodes[id] = NodeCut{State: state, Inflight: inflight}
	}

	if err := journal.PersistDoc(o.cfg.SnapshotChandyFile, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// RegionSnapshot merges the current local state of every node in regionID
// through a fresh snapshot.Coordinator (spec.md §4.5: "Construct a fresh
// SnapshotCoordinator" per region-local snapshot call).
func (o *Orchestrator) RegionSnapshot(regionID string) (map[string]snapshot.MergedEntry, error) {
	ids, err := o.NodeIDs(regionID)
	if err != nil {
		return nil, err
	}
	coord := snapshot.New()
	for _, id := range ids {
		n, err := o.getNode(id)
		if err != nil {
			return nil, err
		}
		coord.RecordLocal(id, n.StateSnapshot())
	}
	return coord.MergeSnapshots(), nil
}

// HierEntry is one package's winning entry in the hierarchical merge, with
// the region that produced it (needed for the region:node tie-break and for
// the persisted document).
type HierEntry struct {
	HLC     meta.HLCStamp `json:"hlc"`
	Payload meta.Value    `json:"payload"`
	Node    string        `json:"node"`
	Region  string        `json:"region"`
}

// HierSnapshotDoc is persisted to cfg.SnapshotHierFile.
type HierSnapshotDoc struct {
	Version   int                  `json:"version"`
	TakenAtMs int64                `json:"taken_at_ms"`
	Packages  map[string]HierEntry `json:"packages"`
}

// HierarchicalSnapshot merges every region's RegionSnapshot into one global
// view: per package, the greatest HLC wins; ties break on the
// lexicographically smaller "region:node" composite key (spec.md §4.5/§9).
func (o *Orchestrator) HierarchicalSnapshot() (HierSnapshotDoc, error) {
	regions := o.Regions()
	sort.Strings(regions)

	merged := make(map[string]HierEntry)
	for _, region := range regions {
		regionMerged, err := o.RegionSnapshot(region)
		if err != nil {
			return HierSnapshotDoc{}, err
		}
		for pkg, entry := range regionMerged {
			cand := HierEntry{HLC: entry.HLC, Payload: entry.Payload, Node: entry.Node, Region: region}
			cur, ok := merged[pkg]
			if !ok {
				merged[pkg] = cand
				continue
			}
			switch cand.HLC.Compare(cur.HLC) {
			case 1:
				merged[pkg] = cand
			case 0:
				if compositeKey(cand.Region, cand.Node) < compositeKey(cur.Region, cur.Node) {
					merged[pkg] = cand
				}
			}
		}
	}

	doc := HierSnapshotDoc{Version: snapshotDocVersion, TakenAtMs: o.wallNowMs(), Packages: merged}
	if err := journal.PersistDoc(o.cfg.SnapshotHierFile, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func compositeKey(region, node string) string { return region + ":" + node }

// SnapshotDiff reports how the hierarchical view has changed since the
// previously persisted snapshot (spec.md §4.5 snapshot_and_diff).
type SnapshotDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Updated []string `json:"updated"`
}

// SnapshotAndDiff loads the previously persisted hierarchical snapshot (if
// any), computes a fresh one, persists it, and returns the sorted
// added/removed/updated package-id diff between the two.
func (o *Orchestrator) SnapshotAndDiff() (HierSnapshotDoc, SnapshotDiff, error) {
	var prior HierSnapshotDoc
	found, err := journal.LoadDoc(o.cfg.SnapshotHierFile, &prior)
	if err != nil {
		return HierSnapshotDoc{}, SnapshotDiff{}, err
	}

	next, err := o.HierarchicalSnapshot()
	if err != nil {
		return next, SnapshotDiff{}, err
	}

	diff := SnapshotDiff{}
	if !found {
		for pkg := range next.Packages {
			diff.Added = append(diff.Added, pkg)
		}
		sort.Strings(diff.Added)
		return next, diff, nil
	}

	for pkg, entry := range next.Packages {
		old, existed := prior.Packages[pkg]
		switch {
		case !existed:
			diff.Added = append(diff.Added, pkg)
		case old.HLC.Less(entry.HLC):
			diff.Updated = append(diff.Updated, pkg)
		}
	}
	for pkg := range prior.Packages {
		if _, stillThere := next.Packages[pkg]; !stillThere {
			diff.Removed = append(diff.Removed, pkg)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Updated)
	return next, diff, nil
}
