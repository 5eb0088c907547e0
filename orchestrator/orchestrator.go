// Package orchestrator implements the HierarchicalOrchestrator: node/region
// registration, synchronous send with simulated latency, anomaly
// invocation, global/hierarchical snapshots, diffing, and listener fan-out
// (spec.md §4.5).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chronomesh/chronomesh/clock"
	"github.com/chronomesh/chronomesh/cmn/cos"
	"github.com/chronomesh/chronomesh/cmn/nlog"
	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/core/meta"
	"github.com/chronomesh/chronomesh/detector"
	"github.com/chronomesh/chronomesh/hk"
	"github.com/chronomesh/chronomesh/journal"
	"github.com/chronomesh/chronomesh/node"
	"github.com/chronomesh/chronomesh/stats"
)

// Listener receives one DeliveryRecord per send. Panics/errors inside a
// Listener are isolated and dropped (spec.md §4.5/§7).
type Listener func(meta.DeliveryRecord)

// Orchestrator owns the node registry, the region index, and the listener
// set exclusively -- the registry and region index are mutated under mu,
// the listener set under lmu (spec.md §3 Ownership).
type Orchestrator struct {
	mu         sync.RWMutex
	nodes      map[string]*node.Node
	nodeRegion map[string]string
	regions    map[string][]string // region -> node ids, insertion order

	lmu       sync.Mutex
	listeners map[uintptr]Listener

	cfg      *config.Config
	detector *detector.Detector
	stat     *stats.Runner
	hk       *hk.Registry

	eventLog *journal.Writer // delivery journal (spec.md §6)
	anomLog  *journal.Writer // anomaly journal

	// errs accumulates best-effort journal/listener failures: logged and
	// counted in stat, never allowed to abort a Send (spec.md §2/§7).
	errs cos.Errs

	wallNowMs func() int64
	rng       *rand.Rand
	rngMu     sync.Mutex
}

func New(cfg *config.Config) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	eventLog, err := journal.NewWriter(filepath.Join(cfg.LogDir, "deliveries.jsonl"))
	if err != nil {
		return nil, err
	}
	anomLog, err := journal.NewWriter(filepath.Join(cfg.LogDir, "anomalies.jsonl"))
	if err != nil {
		return nil, err
	}
	stat := stats.NewRunner()
	o := &Orchestrator{
		nodes:      make(map[string]*node.Node),
		nodeRegion: make(map[string]string),
		regions:    make(map[string][]string),
		listeners:  make(map[uintptr]Listener),
		cfg:        cfg,
		detector:   detector.New(cfg.DriftThresholdMS, anomLog, stat),
		stat:       stat,
		hk:         hk.NewRegistry(),
		eventLog:   eventLog,
		anomLog:    anomLog,
		wallNowMs:  wallNowMs,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	return o, nil
}

func wallNowMs() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }

// AddRegion is idempotent (spec.md §4.5).
func (o *Orchestrator) AddRegion(regionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.regions[regionID]; !ok {
		o.regions[regionID] = nil
	}
}

// AddNode creates a Node whose physical-time source is wallNowMs()+offsetMs
// (simulated clock skew) and indexes it under regionID. Rejects duplicate
// ids (spec.md §4.5).
func (o *Orchestrator) AddNode(nodeID, regionID string, offsetMs int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.nodes[nodeID]; exists {
		return cos.NewErrDuplicateNode(nodeID)
	}
	clk := clock.NewSkewed(nodeID, o.wallNowMs, offsetMs)
	logW, err := journal.NewWriter(filepath.Join(o.cfg.LogDir, "nodes", nodeID+".jsonl"))
	if err != nil {
		return err
	}
	n := node.New(nodeID, clk, logW)

	o.nodes[nodeID] = n
	o.nodeRegion[nodeID] = regionID
	if _, ok := o.regions[regionID]; !ok {
		o.regions[regionID] = nil
	}
	o.regions[regionID] = append(o.regions[regionID], nodeID)
	return nil
}

// Regions lists every registered region id.
func (o *Orchestrator) Regions() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.regions))
	for r := range o.regions {
		out = append(out, r)
	}
	return out
}

// NodeIDs lists the members of regionID, in registration order.
func (o *Orchestrator) NodeIDs(regionID string) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids, ok := o.regions[regionID]
	if !ok {
		return nil, cos.NewErrUnknownRegion(regionID)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Nodes lists every registered node id.
func (o *Orchestrator) Nodes() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.nodes))
	for id := range o.nodes {
		out = append(out, id)
	}
	return out
}

func (o *Orchestrator) Metrics() *stats.Runner { return o.stat }

// AnomalyCount is the running total of drift and out-of-order anomalies the
// detector has flagged so far.
func (o *Orchestrator) AnomalyCount() int { return o.detector.TotalAnomalies() }

// Errors reports how many distinct best-effort failures (journal appends,
// listener panics) have been accumulated, joined into one error for
// inspection -- never surfaced as a Send failure (spec.md §2/§7).
func (o *Orchestrator) Errors() (cnt int, err error) { return o.errs.JoinErr() }

func (o *Orchestrator) getNode(id string) (*node.Node, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n, ok := o.nodes[id]
	if !ok {
		return nil, cos.NewErrUnknownNode(id)
	}
	return n, nil
}

func (o *Orchestrator) regionOf(nodeID string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nodeRegion[nodeID]
}

func (o *Orchestrator) randLatencyMs() int64 {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return 10 + o.rng.Int63n(191) // uniform [10, 200]
}

// RegisterListener adds cb, de-duplicated by function identity.
func (o *Orchestrator) RegisterListener(cb Listener) {
	key := reflect.ValueOf(cb).Pointer()
	o.lmu.Lock()
	o.listeners[key] = cb
	o.lmu.Unlock()
}

func (o *Orchestrator) UnregisterListener(cb Listener) {
	key := reflect.ValueOf(cb).Pointer()
	o.lmu.Lock()
	delete(o.listeners, key)
	o.lmu.Unlock()
}

// broadcast fans DeliveryRecord out to every listener concurrently via
// errgroup; a panicking listener is recovered per-goroutine so it cannot
// take down the others or the orchestrator (spec.md §4.5/§7).
func (o *Orchestrator) broadcast(rec meta.DeliveryRecord) {
	o.lmu.Lock()
	cbs := make([]Listener, 0, len(o.listeners))
	for _, cb := range o.listeners {
		cbs = append(cbs, cb)
	}
	o.lmu.Unlock()

	var g errgroup.Group
	for _, cb := range cbs {
		cb := cb
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					nlog.Warningf("orchestrator: listener panicked: %v", r)
					o.stat.IncListenerErr()
					o.errs.Add(fmt.Errorf("listener panicked: %v", r))
				}
			}()
			cb(rec)
			return nil
		})
	}
	_ = g.Wait() // per-listener panics are recovered above; Go's own errors are always nil
}

// StartSnapshotLoop registers the in-scope background hierarchical-snapshot
// task (spec.md §5/§9's "snapshot-loop" long-running task) with the
// scheduler; it does not start it -- RunScheduler drives it until its ctx
// is cancelled.
func (o *Orchestrator) StartSnapshotLoop(every time.Duration) {
	o.hk.Reg("hierarchical-snapshot", every, func() {
		if _, err := o.HierarchicalSnapshot(); err != nil {
			nlog.Warningf("snapshot loop: %v", err)
		}
	})
}

// RunScheduler blocks, driving the background snapshot loop (and anything
// else registered via hk.Registry) until ctx is cancelled.
func (o *Orchestrator) RunScheduler(ctx context.Context) error { return o.hk.Run(ctx) }
