// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import "time"

// SACKBlock is a selective-acknowledgement range reported by the peer. A
// block of (0,0) means absent.
type SACKBlock struct {
	Start Seq
	End   Seq
}

func (b SACKBlock) isZero() bool {
	return b.Start == 0 && b.End == 0
}

// AckSample is the per-event input from the transport that AckAccounting
// consumes.
type AckSample struct {
	SndUna Seq
	SACK   [4]SACKBlock
	RTT    time.Duration // 0 means no sample this event
}

// sortSACK returns the SACK blocks sorted by Start using a wrap-aware
// "after" comparison. A simple insertion sort is sufficient for 4 elements.
func sortSACK(blocks [4]SACKBlock) [4]SACKBlock {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && seqAfter(blocks[j-1].Start, blocks[j].Start); j-- {
			blocks[j-1], blocks[j] = blocks[j], blocks[j-1]
		}
	}
	return blocks
}

// applyAck folds one ACK event's cumulative ACK and SACK blocks into every
// valid interval in the ring, not just the current sender.
func (c *Controller) applyAck(sample AckSample) {
	if sample.RTT > 0 {
		c.lastRTT = sample.RTT
	}
	sack := sortSACK(sample.SACK)
	for i := range c.ring.slots {
		iv := &c.ring.slots[i]
		if !iv.Valid {
			continue
		}
		applyAckToInterval(iv, sample.SndUna, sack)
	}
}

// applyAckToInterval applies one ACK event's cumulative ACK and SACK blocks
// to a single interval's last-known-acked sequence and loss accounting.
func applyAckToInterval(iv *MonitorInterval, sndUna Seq, sack [4]SACKBlock) {
	if seqAfter(sndUna, iv.LastAckedSeq) {
		iv.LastAckedSeq = sndUna
	}
	for _, b := range sack {
		if b.isZero() {
			continue
		}
		if seqBefore(iv.LastAckedSeq, iv.SndEndSeq) {
			gapEnd := seqMin(b.Start, iv.SndEndSeq)
			if seqBefore(iv.LastAckedSeq, gapEnd) {
				iv.BytesLost += seqDiff(iv.LastAckedSeq, gapEnd)
			}
		}
		if seqAfter(b.End, iv.LastAckedSeq) {
			iv.LastAckedSeq = b.End
		}
	}
}
