package scenario_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chronomesh/chronomesh/config"
	"github.com/chronomesh/chronomesh/core/meta"
	"github.com/chronomesh/chronomesh/orchestrator"
	"github.com/chronomesh/chronomesh/scenario"
)

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.LogDir = dir
	cfg.SnapshotChandyFile = filepath.Join(dir, "global_snapshot.chandy.json")
	cfg.SnapshotHierFile = filepath.Join(dir, "global_snapshot.hier.json")
	zero := int64(0)
	cfg.SimulateLatencyMS = &zero
	o, err := orchestrator.New(cfg)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	return o
}

func TestRunSeedsAndReplays(t *testing.T) {
	o := newTestOrchestrator(t)
	spec := scenario.Spec{
		Regions: []scenario.RegionSpec{
			{ID: "NA", OffsetMS: 0, NodeCount: 2},
		},
		Steps: []scenario.Step{
			{Src: scenario.NodeName("NA", 0), Dst: scenario.NodeName("NA", 1), PackageID: "pkg1", Payload: "hello"},
		},
	}

	sum, err := scenario.Run(context.Background(), o, spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Sent != 1 || sum.Applied != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRunGeneratesPackageIDWhenOmitted(t *testing.T) {
	o := newTestOrchestrator(t)
	spec := scenario.Spec{
		Regions: []scenario.RegionSpec{{ID: "NA", NodeCount: 2}},
		Steps: []scenario.Step{
			{Src: scenario.NodeName("NA", 0), Dst: scenario.NodeName("NA", 1), Payload: "hello"},
		},
	}
	var gotID string
	o.RegisterListener(func(rec meta.DeliveryRecord) { gotID = rec.PackageID })
	sum, err := scenario.Run(context.Background(), o, spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Sent != 1 || sum.Applied != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if gotID == "" {
		t.Fatal("expected a generated package_id, got empty")
	}
}

func TestRunUnknownNodeIsAnError(t *testing.T) {
	o := newTestOrchestrator(t)
	spec := scenario.Spec{
		Regions: []scenario.RegionSpec{{ID: "NA", NodeCount: 1}},
		Steps:   []scenario.Step{{Src: scenario.NodeName("NA", 0), Dst: "ghost", PackageID: "pkg1"}},
	}
	if _, err := scenario.Run(context.Background(), o, spec); err == nil {
		t.Fatal("expected an error for an unseeded destination node")
	}
}

func TestRunRespectsCancelledContext(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec := scenario.Spec{
		Regions: []scenario.RegionSpec{{ID: "NA", NodeCount: 1}},
		Steps:   []scenario.Step{{Src: scenario.NodeName("NA", 0), Dst: scenario.NodeName("NA", 0), PackageID: "pkg1"}},
	}
	if _, err := scenario.Run(ctx, o, spec); err == nil {
		t.Fatal("expected context.Canceled")
	}
}
