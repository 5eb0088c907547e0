package snapshot

import (
	"testing"

	"github.com/chronomesh/chronomesh/core/meta"
)

func TestMergeTieBreakSmallerNodeWins(t *testing.T) {
	c := New()
	hlc := meta.HLCStamp{Phys: 1000, Cnt: 0, Node: "zzz"}
	c.RecordLocal("nodeB", map[string]meta.StateEntry{"pkgZ": {HLC: hlc, Node: "nodeB"}})
	c.RecordLocal("nodeA", map[string]meta.StateEntry{"pkgZ": {HLC: hlc, Node: "nodeA"}})

	got := c.MergeSnapshots()
	if got["pkgZ"].Node != "nodeA" {
		t.Fatalf("tie-break picked %q, want nodeA (lexicographically smaller)", got["pkgZ"].Node)
	}
}

func TestMergePicksGreatestHLC(t *testing.T) {
	c := New()
	c.RecordLocal("nodeA", map[string]meta.StateEntry{
		"pkg1": {HLC: meta.HLCStamp{Phys: 1000, Node: "nodeA"}, Node: "nodeA"},
	})
	c.RecordLocal("nodeB", map[string]meta.StateEntry{
		"pkg1": {HLC: meta.HLCStamp{Phys: 2000, Node: "nodeB"}, Node: "nodeB"},
	})

	got := c.MergeSnapshots()
	if got["pkg1"].Node != "nodeB" || got["pkg1"].HLC.Phys != 2000 {
		t.Fatalf("merge = %+v, want nodeB @ phys=2000", got["pkg1"])
	}
}

func TestMergeIdempotent(t *testing.T) {
	c := New()
	c.RecordLocal("nodeA", map[string]meta.StateEntry{
		"pkg1": {HLC: meta.HLCStamp{Phys: 1000, Node: "nodeA"}, Node: "nodeA"},
	})
	c.RecordLocal("nodeB", map[string]meta.StateEntry{
		"pkg1": {HLC: meta.HLCStamp{Phys: 500, Node: "nodeB"}, Node: "nodeB"},
	})
	first := c.MergeSnapshots()

	c2 := New()
	asState := make(map[string]meta.StateEntry, len(first))
	for pkg, e := range first {
		asState[pkg] = meta.StateEntry{HLC: e.HLC, Payload: e.Payload, Node: e.Node}
	}
	c2.RecordLocal("merged", asState)
	second := c2.MergeSnapshots()

	if len(first) != len(second) || first["pkg1"].HLC != second["pkg1"].HLC {
		t.Fatalf("merge not idempotent: first=%+v second=%+v", first, second)
	}
}

func TestResetClearsRecorded(t *testing.T) {
	c := New()
	c.RecordLocal("nodeA", map[string]meta.StateEntry{"pkg1": {}})
	c.Reset()
	if got := c.MergeSnapshots(); len(got) != 0 {
		t.Fatalf("expected empty merge after Reset, got %+v", got)
	}
}
