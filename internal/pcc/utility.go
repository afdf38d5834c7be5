// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import (
	"time"

	"github.com/heistp/pcc/internal/fixedpoint"
)

// sigmoidSteepness and sigmoidMidpoint parameterize the loss-penalty gate.
const (
	sigmoidSteepness = 100.0
	sigmoidMidpoint  = 0.05
)

// lengthEpsilon is the "+1" microsecond added to an interval's length to
// avoid division by zero.
const lengthEpsilon = time.Microsecond

// computeUtility scores a single closing interval's utility. An interval
// that never sent anything never has its utility computed: iv.UtilityComputed
// stays false and iv.Utility stays zero.
func computeUtility(iv *MonitorInterval, mss Bytes, log Logger) {
	if iv.SegmentsSent == 0 {
		return
	}
	sentBytes := Bytes(iv.SegmentsSent) * mss
	if sentBytes == 0 {
		return
	}

	if iv.EndTimeUS == 0 && log != nil {
		log.Warnf("utility: end_time_us==0, using length epsilon only")
	}
	length := iv.EndTimeUS + lengthEpsilon

	lost := iv.BytesLost
	if lost > sentBytes {
		if log != nil {
			log.Warnf("utility: bytes_lost (%d) > sent_bytes (%d), clamping", lost, sentBytes)
		}
		lost = sentBytes
	}

	lengthS := length.Seconds()
	iv.ActualRate = Rate(float64(sentBytes) / lengthS)
	if iv.ActualRate > iv.TargetRate && log != nil {
		log.Warnf("utility: actual_rate (%s) exceeds target_rate (%s), pacer overshoot", iv.ActualRate, iv.TargetRate)
	}

	p := fixedpoint.FromFloat(float64(lost) / float64(sentBytes))
	timeS := fixedpoint.FromFloat(lengthS)
	delivered := fixedpoint.FromFloat(float64(sentBytes - lost))
	lossBytes := fixedpoint.FromFloat(float64(lost))

	penalty := sigmoidPenalty(p)
	throughputTerm := delivered.Div(timeS).Mul(penalty)
	lossTerm := lossBytes.Div(timeS)

	iv.Utility = throughputTerm.Sub(lossTerm)
	iv.UtilityComputed = true
}

// sigmoidPenalty returns 1 - 1/(1+exp(-100*(p-0.05))), a smooth gate that
// lightly penalizes utility below 5% loss and heavily above it.
func sigmoidPenalty(p fixedpoint.Q32) fixedpoint.Q32 {
	x := p.Sub(fixedpoint.FromFloat(sigmoidMidpoint)).Mul(fixedpoint.FromFloat(-sigmoidSteepness))
	e := x.Exp()
	denom := fixedpoint.One.Add(e)
	return fixedpoint.One.Sub(fixedpoint.One.Div(denom))
}
