// Package meta holds the wire/value types shared by clock, node, detector,
// snapshot and orchestrator.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package meta

// DeliveryRecord is journalled once per send, after the destination has
// (attempted to) apply the message.
type DeliveryRecord struct {
	ArrivalTS int64    `json:"arrival_ts"`
	Src       string   `json:"src"`
	Dst       string   `json:"dst"`
	PackageID string   `json:"package_id"`
	HLC       HLCStamp `json:"hlc"`
	LatencyMS int64    `json:"latency_ms"`
	Applied   bool     `json:"applied"`
	SrcRegion string   `json:"src_region"`
	DstRegion string   `json:"dst_region"`
}

// NodeLogEntry is a per-node append-only event: one per send and one per
// receive.
type NodeLogEntry struct {
	Action    string   `json:"action"` // "send" | "recv"
	Src       string   `json:"src"`
	Dst       string   `json:"dst"`
	HLC       HLCStamp `json:"hlc"`
	PackageID string   `json:"package_id"`
	Payload   Value    `json:"payload"`
	SentTS    int64    `json:"sent_ts"`
	ArrivalTS int64    `json:"arrival_ts,omitempty"`
}

// AnomalyKind distinguishes the two shapes an AnomalyRecord can take.
type AnomalyKind string

const (
	AnomalyDrift      AnomalyKind = "drift"
	AnomalyOutOfOrder AnomalyKind = "out_of_order"
	// shapes produced by a log scan instead of a live check (spec.md §3/§9)
	AnomalyScanOutOfOrder AnomalyKind = "out-of-order"
	AnomalyScanDrift      AnomalyKind = "drift"
)

// AnomalyRecord is a union type: only the fields relevant to Kind are
// populated. Keeping one struct (rather than an interface) makes JSONL
// encode/decode trivial and matches the "variant" shape spec.md §3 describes.
type AnomalyRecord struct {
	Kind AnomalyKind `json:"kind"`

	// live drift check (Detector.CheckDrift)
	Node     string `json:"node,omitempty"`
	DriftMS  int64  `json:"drift_ms,omitempty"`
	HLCWall  int64  `json:"hlc_wall,omitempty"`
	Arrival  int64  `json:"arrival,omitempty"`

	// live out-of-order check (Detector.CheckOutOfOrder)
	Package    string    `json:"package,omitempty"`
	StoredHLC  *HLCStamp `json:"stored_hlc,omitempty"`
	ReceivedHLC *HLCStamp `json:"received_hlc,omitempty"`

	// derived from a log scan (Detector.ScanLog)
	At      *DeliveryRecord `json:"at,omitempty"`
	Between *[2]DeliveryRecord `json:"between,omitempty"`
}
