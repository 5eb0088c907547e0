// Package node implements a participant in the mesh: an id, an HLC clock,
// its latest known package state, and the messages it has sent but not yet
// seen received.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package node

import (
	"sync"

	"github.com/chronomesh/chronomesh/clock"
	"github.com/chronomesh/chronomesh/cmn/debug"
	"github.com/chronomesh/chronomesh/cmn/nlog"
	"github.com/chronomesh/chronomesh/core/meta"
	"github.com/chronomesh/chronomesh/journal"
)

// Node exclusively owns its clock, state and inflight maps; all three are
// mutated under mu so that a concurrent snapshot sees one consistent cut
// (spec.md §5).
type Node struct {
	mu       sync.Mutex
	id       string
	clock    *clock.Clock
	state    map[string]meta.StateEntry
	inflight map[string]meta.Message
	log      *journal.Writer // per-node event log, best-effort (spec.md §4.2)
}

func New(id string, clk *clock.Clock, log *journal.Writer) *Node {
	debug.Assert(id != "", "node requires a non-empty id")
	return &Node{
		id:       id,
		clock:    clk,
		state:    make(map[string]meta.StateEntry),
		inflight: make(map[string]meta.Message),
		log:      log,
	}
}

func (n *Node) ID() string { return n.id }

// StampEvent delegates to the clock (spec.md §4.2 stamp_event).
func (n *Node) StampEvent() meta.HLCStamp { return n.clock.Now() }

// Send implements spec.md §4.2 send: stamp, construct the message,
// optimistically update local state and inflight, journal a "send" entry
// (swallowing any log failure), and return the message for the caller
// (the orchestrator) to deliver.
func (n *Node) Send(packageID string, payload meta.Value, dst string, sentTS int64) meta.Message {
	// n.mu spans the clock step and the map updates it produces: the
	// clock's own mutex only guarantees ordering among Now/Merge calls,
	// not between a step and the state mutation it causes (spec.md §5).
	n.mu.Lock()
	hlc := n.clock.Now()
	msg := meta.Message{
		PackageID: packageID,
		Payload:   payload,
		HLC:       hlc,
		Src:       n.id,
		Dst:       dst,
		SentTS:    sentTS,
	}
	n.state[packageID] = meta.StateEntry{HLC: hlc, Payload: payload, Node: n.id}
	n.inflight[packageID] = msg
	n.mu.Unlock()

	if err := n.log.Append(meta.NodeLogEntry{
		Action: "send", Src: n.id, Dst: dst, HLC: hlc,
		PackageID: packageID, Payload: payload, SentTS: sentTS,
	}); err != nil {
		nlog.Warningf("node %s: journal send entry: %v", n.id, err)
	}
	return msg
}

// Receive implements spec.md §4.2 receive: merge the clock, compare against
// stored state by HLC tuple order, apply if strictly newer, always clear
// inflight for the package, journal a "recv" entry best-effort.
func (n *Node) Receive(msg meta.Message, arrivalTS int64) (applied bool) {
	n.mu.Lock()
	n.clock.Merge(msg.HLC)
	stored, ok := n.state[msg.PackageID]
	if !ok || stored.HLC.Less(msg.HLC) {
		n.state[msg.PackageID] = meta.StateEntry{HLC: msg.HLC, Payload: msg.Payload, Node: msg.Src}
		applied = true
	}
	delete(n.inflight, msg.PackageID)
	n.mu.Unlock()

	if err := n.log.Append(meta.NodeLogEntry{
		Action: "recv", Src: msg.Src, Dst: n.id, HLC: msg.HLC,
		PackageID: msg.PackageID, Payload: msg.Payload, SentTS: msg.SentTS, ArrivalTS: arrivalTS,
	}); err != nil {
		nlog.Warningf("node %s: journal recv entry: %v", n.id, err)
	}
	return applied
}

// StateOf returns the entry for packageID and whether it exists, used by
// the detector's out-of-order check before Receive mutates state.
func (n *Node) StateOf(packageID string) (meta.StateEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.state[packageID]
	return e, ok
}

// StateSnapshot returns a deep copy of the node's state map, observed
// atomically with respect to Send/Receive (spec.md §5).
func (n *Node) StateSnapshot() map[string]meta.StateEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]meta.StateEntry, len(n.state))
	for k, v := range n.state {
		out[k] = v
	}
	return out
}

// InflightSnapshot returns a deep copy of the node's inflight map, captured
// under the same lock as StateSnapshot would be -- callers that need both
// a consistent (state, inflight) pair should use Snapshot.
func (n *Node) InflightSnapshot() map[string]meta.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]meta.Message, len(n.inflight))
	for k, v := range n.inflight {
		out[k] = v
	}
	return out
}

// Snapshot captures state and inflight together under one lock acquisition,
// which is what the Chandy-Lamport cut (spec.md §4.5) requires: in-flight
// messages are captured before the receiver could remove them.
func (n *Node) Snapshot() (state map[string]meta.StateEntry, inflight map[string]meta.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	state = make(map[string]meta.StateEntry, len(n.state))
	for k, v := range n.state {
		state[k] = v
	}
	inflight = make(map[string]meta.Message, len(n.inflight))
	for k, v := range n.inflight {
		inflight[k] = v
	}
	return state, inflight
}
