/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package orchestrator

import (
	"github.com/chronomesh/chronomesh/cmn/nlog"
	"github.com/chronomesh/chronomesh/core/meta"
)

// Send implements spec.md §4.5 send: validate both endpoints, stamp and
// deliver the message through src/dst's own HLC machinery, run the detector
// against the delivery, journal a DeliveryRecord, and fan it out to
// listeners. The simulated transport never drops or reorders messages --
// only the clocks disagree (spec.md §1 scope).
func (o *Orchestrator) Send(srcID, dstID, packageID string, payload meta.Value) (meta.DeliveryRecord, error) {
	return o.SendWithLatency(srcID, dstID, packageID, payload, nil)
}

// SendWithLatency is Send with an explicit per-call latency override
// (spec.md §4.7's scenario steps may pin latency_ms per send instead of
// relying on the orchestrator-wide default).
func (o *Orchestrator) SendWithLatency(srcID, dstID, packageID string, payload meta.Value, latencyOverrideMs *int64) (meta.DeliveryRecord, error) {
	src, err := o.getNode(srcID)
	if err != nil {
		return meta.DeliveryRecord{}, err
	}
	dst, err := o.getNode(dstID)
	if err != nil {
		return meta.DeliveryRecord{}, err
	}

	sentTS := o.wallNowMs()
	msg := src.Send(packageID, payload, dstID, sentTS)

	latency := o.latencyMs()
	if latencyOverrideMs != nil {
		latency = *latencyOverrideMs
	}
	arrivalTS := sentTS + latency

	prior, hadPrior := dst.StateOf(packageID)
	applied := dst.Receive(msg, arrivalTS)
	if hadPrior {
		o.detector.CheckOutOfOrder(prior.HLC, msg.HLC, packageID)
	}
	o.detector.CheckDrift(dstID, msg.HLC.Phys, arrivalTS)

	rec := meta.DeliveryRecord{
		ArrivalTS: arrivalTS,
		Src:       srcID,
		Dst:       dstID,
		PackageID: packageID,
		HLC:       msg.HLC,
		LatencyMS: latency,
		Applied:   applied,
		SrcRegion: o.regionOf(srcID),
		DstRegion: o.regionOf(dstID),
	}

	o.stat.IncSend()
	if applied {
		o.stat.IncApplied()
	} else {
		o.stat.IncRejected()
	}
	o.stat.ObserveSendLatencyMs(float64(latency))

	if err := o.eventLog.Append(rec); err != nil {
		nlog.Warningf("orchestrator: journal delivery record: %v", err)
		o.stat.IncIOErr()
		o.errs.Add(err)
	}
	o.broadcast(rec)
	return rec, nil
}

// latencyMs resolves spec.md §6's simulate_latency_ms config: a fixed value
// when set, otherwise a uniform [10,200]ms draw per send.
func (o *Orchestrator) latencyMs() int64 {
	if o.cfg.SimulateLatencyMS != nil {
		return *o.cfg.SimulateLatencyMS
	}
	return o.randLatencyMs()
}
