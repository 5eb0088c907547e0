// Package hk provides mechanism for registering cleanup/periodic functions
// which are invoked at specified intervals.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chronomesh/chronomesh/cmn/mono"
	"github.com/chronomesh/chronomesh/cmn/nlog"
)

type entry struct {
	name  string
	every time.Duration
	f     func()
	stop  chan struct{}
}

// Registry runs each registered function on its own ticker, joined via an
// errgroup so Run returns only once every ticker goroutine has exited.
// This is the in-scope background-loop mechanism spec.md §5/§9 describes
// ("coroutine-style control flow ... maps to independent long-running
// tasks with a shutdown signal").
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry { return &Registry{entries: make(map[string]*entry)} }

// Reg registers f to run every `every`, starting after the first tick.
// Re-registering a name replaces the old task the next time Run starts.
func (r *Registry) Reg(name string, every time.Duration, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{name: name, every: every, f: f, stop: make(chan struct{})}
}

func (r *Registry) Unreg(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()
	if ok {
		close(e.stop)
	}
}

// Run blocks until ctx is cancelled, driving every registered entry
// concurrently; a panicking task is recovered and logged so it cannot take
// the others down with it.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	for _, e := range entries {
		e := e
		g.Go(func() error {
			runTicker(gctx, e)
			return nil
		})
	}
	return g.Wait()
}

func runTicker(ctx context.Context, e *entry) {
	t := time.NewTicker(e.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-t.C:
			safeRun(e.name, e.every, e.f)
		}
	}
}

// safeRun recovers a panicking task and, using cmn/mono's monotonic clock
// (immune to wall-clock jumps), warns when a task's own
// run took longer than the interval it's scheduled on -- a sign it will
// start overlapping itself.
func safeRun(name string, every time.Duration, f func()) {
	start := mono.NanoTime()
	defer func() {
		if r := recover(); r != nil {
			nlog.Errorf("hk: task %q panicked: %v", name, r)
			return
		}
		if elapsed := time.Duration(mono.NanoTime() - start); elapsed > every {
			nlog.Warningf("hk: task %q took %v, longer than its %v interval", name, elapsed, every)
		}
	}()
	f()
}
