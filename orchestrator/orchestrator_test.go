package orchestrator_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/core/meta"
	"github.com/chronomesh/chronomesh/orchestrator"
)

func newTestOrchestrator() *orchestrator.Orchestrator {
	dir, err := os.MkdirTemp("", "chronomesh-orch-")
	Expect(err).NotTo(HaveOccurred())
	cfg := config.Default()
	cfg.LogDir = dir
	cfg.SnapshotChandyFile = filepath.Join(dir, "global_snapshot.chandy.json")
	cfg.SnapshotHierFile = filepath.Join(dir, "global_snapshot.hier.json")
	fixedLatency := int64(0)
	cfg.SimulateLatencyMS = &fixedLatency
	o, err := orchestrator.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return o
}

var _ = Describe("Orchestrator", func() {
	It("delivers a two-node round trip and applies the newer state", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())
		Expect(o.AddNode("b", "NA", 0)).To(Succeed())

		rec, err := o.Send("a", "b", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Applied).To(BeTrue())
		Expect(rec.Src).To(Equal("a"))
		Expect(rec.Dst).To(Equal("b"))

		back, err := o.Send("b", "a", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())
		Expect(back.Applied).To(BeTrue())
	})

	It("rejects unknown src/dst ids", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())

		_, err := o.Send("a", "ghost", "pkg1", meta.Value{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a second AddNode with a duplicate id", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())
		err := o.AddNode("a", "NA", 0)
		Expect(err).To(HaveOccurred())
	})

	It("flags an out-of-order delivery when a stale stamp arrives after a newer one", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())
		Expect(o.AddNode("b", "NA", -15000)).To(Succeed())
		Expect(o.AddNode("c", "NA", 0)).To(Succeed())

		// "a" stamps a fresh message to "c" first...
		first, err := o.Send("a", "c", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Applied).To(BeTrue())

		// ...then "b", whose clock lags 15s behind, delivers a second
		// message for the same package. Its HLC is older than the state "c"
		// already applied, so it is rejected and flagged out-of-order, and
		// its 15s gap to the arrival time is flagged as drift.
		second, err := o.Send("b", "c", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Applied).To(BeFalse())
		Expect(o.AnomalyCount()).To(Equal(2))
	})

	It("captures a Chandy-Lamport cut with no inflight message once delivery completes", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())
		Expect(o.AddNode("b", "NA", 0)).To(Succeed())

		_, err := o.Send("a", "b", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())

		doc, err := o.GlobalSnapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Nodes["a"].Inflight).To(BeEmpty(), "inflight is cleared once delivery completes")
		Expect(doc.Nodes["b"].State).To(HaveKey("pkg1"))
	})

	It("merges hierarchically with a region:node tie-break", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		o.AddRegion("EU")
		Expect(o.AddNode("na-1", "NA", 0)).To(Succeed())
		Expect(o.AddNode("eu-1", "EU", 5000)).To(Succeed())

		// both regions now hold pkg1 with the identical stamp from na-1, so
		// the tie breaks on "EU:na-1" < "NA:na-1".
		_, err := o.Send("na-1", "eu-1", "pkg1", meta.NewValue("from-na"))
		Expect(err).NotTo(HaveOccurred())

		doc, err := o.HierarchicalSnapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Packages).To(HaveKey("pkg1"))
		Expect(doc.Packages["pkg1"].Region).To(Equal("EU"))
		Expect(doc.Packages["pkg1"].Node).To(Equal("na-1"))
	})

	It("diffs added/removed/updated packages against the prior snapshot", func() {
		o := newTestOrchestrator()
		o.AddRegion("NA")
		Expect(o.AddNode("a", "NA", 0)).To(Succeed())
		Expect(o.AddNode("b", "NA", 0)).To(Succeed())

		_, diff1, err := o.SnapshotAndDiff()
		Expect(err).NotTo(HaveOccurred())
		Expect(diff1.Added).To(BeEmpty())

		_, err = o.Send("a", "b", "pkg1", meta.Value{})
		Expect(err).NotTo(HaveOccurred())

		_, diff2, err := o.SnapshotAndDiff()
		Expect(err).NotTo(HaveOccurred())
		Expect(diff2.Added).To(ContainElement("pkg1"))
	})
})
