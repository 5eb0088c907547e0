package clock

import (
	"testing"

	"github.com/chronomesh/chronomesh/core/meta"
)

func TestNowMonotonicSameMillis(t *testing.T) {
	c := New("A", func() int64 { return 1000 })
	for i := uint64(0); i < 10; i++ {
		s := c.Now()
		want := meta.HLCStamp{Phys: 1000, Cnt: i, Node: "A"}
		if !s.Equal(want) {
			t.Fatalf("stamp %d = %v, want %v", i, s, want)
		}
	}
}

func TestNowStrictlyIncreasing(t *testing.T) {
	physical := []int64{1000, 1000, 999, 1000, 2000, 1999}
	i := 0
	c := New("A", func() int64 { v := physical[i]; i++; return v })

	var prev meta.HLCStamp
	for range physical {
		cur := c.Now()
		if !prev.IsZero() && !cur.Greater(prev) {
			t.Fatalf("stamp did not strictly increase: prev=%v cur=%v", prev, cur)
		}
		prev = cur
	}
}

func TestMergeBumpsCounter(t *testing.T) {
	c := New("A", func() int64 { return 1000 })
	c.Now() // (1000, 0, A)

	got := c.Merge(meta.HLCStamp{Phys: 1000, Cnt: 5, Node: "B"})
	want := meta.HLCStamp{Phys: 1000, Cnt: 6, Node: "A"}
	if !got.Equal(want) {
		t.Fatalf("merge = %v, want %v", got, want)
	}
}

func TestMergeStrictlyGreaterThanBoth(t *testing.T) {
	c := New("A", func() int64 { return 500 })
	prev := c.Now()
	remote := meta.HLCStamp{Phys: 300, Cnt: 9, Node: "B"}

	got := c.Merge(remote)
	if !got.Greater(prev) {
		t.Fatalf("merge result %v not greater than prior local stamp %v", got, prev)
	}
	if !got.Greater(remote) {
		t.Fatalf("merge result %v not greater than remote %v", got, remote)
	}
}

func TestMergePhysicalAheadResetsCounter(t *testing.T) {
	c := New("A", func() int64 { return 1000 })
	c.Now()

	c2 := New("A", func() int64 { return 5000 })
	got := c2.Merge(meta.HLCStamp{Phys: 1000, Cnt: 3, Node: "B"})
	if got.Cnt != 0 || got.Phys != 5000 {
		t.Fatalf("merge = %v, want phys=5000 cnt=0", got)
	}
}
