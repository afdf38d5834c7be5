// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import (
	"time"

	"github.com/heistp/pcc/internal/fixedpoint"
)

// RingSize is the number of monitor intervals held by a MonitorRing.
const RingSize = 30

// minSegmentsBeforeClose is the minimum number of segments an interval must
// send before its send window is allowed to elapse.
const minSegmentsBeforeClose = 20

// graduationExtension is the amount an under-sampled interval's end time is
// extended by on each check.
const graduationExtension = 50 * time.Microsecond

// MonitorInterval is one experimental slot in a MonitorRing.
type MonitorInterval struct {
	Valid        bool
	DecisionID   int // 0 = not part of a decision quartet, else 1..4
	StateAtStart FSMState

	StartTime  time.Time
	EndTimeUS  time.Duration // duration from StartTime
	RTTSnapshot time.Duration

	SndStartSeq  Seq
	SndEndSeq    Seq
	LastAckedSeq Seq

	SegmentsSent int
	BytesLost    Bytes

	TargetRate Rate
	ActualRate Rate // computed on close, used by the FSM's Start-exit rule

	Utility         fixedpoint.Q32
	UtilityComputed bool
}

// elapsed returns how long the interval has been open as of now.
func (iv *MonitorInterval) elapsed(now time.Time) time.Duration {
	return now.Sub(iv.StartTime)
}

// hasSentAnything returns whether any bytes have been attributed to this
// interval while it was the current sender.
func (iv *MonitorInterval) hasSentAnything() bool {
	return iv.SndEndSeq != iv.SndStartSeq
}

// MonitorRing is a fixed-capacity ring of monitor intervals.
type MonitorRing struct {
	slots   [RingSize]MonitorInterval
	current int
}

// NewMonitorRing returns an empty MonitorRing.
func NewMonitorRing() *MonitorRing {
	return &MonitorRing{}
}

// CurrentIndex returns the index of the current sender slot.
func (r *MonitorRing) CurrentIndex() int {
	return r.current
}

// Current returns the current (sending) interval.
func (r *MonitorRing) Current() *MonitorInterval {
	return &r.slots[r.current]
}

// At returns the interval at the given ring index.
func (r *MonitorRing) At(i int) *MonitorInterval {
	return &r.slots[i%RingSize]
}

func (r *MonitorRing) next(i int) int {
	return (i + 1) % RingSize
}

func (r *MonitorRing) prior(i int) int {
	return (i - 1 + RingSize) % RingSize
}

// OpenCurrent initializes the current slot to start a new interval.
func (r *MonitorRing) OpenCurrent(now time.Time, rate Rate, rtt time.Duration, state FSMState, startSeq Seq) {
	end := rtt * 4 / 3
	r.slots[r.current] = MonitorInterval{
		Valid:        true,
		StateAtStart: state,
		StartTime:    now,
		EndTimeUS:    end,
		RTTSnapshot:  rtt,
		SndStartSeq:  startSeq,
		SndEndSeq:    startSeq,
		LastAckedSeq: startSeq,
		TargetRate:   rate,
	}
}

// NoteSent records send progress against the current interval.
func (r *MonitorRing) NoteSent(deltaSegments int, newNextSeq Seq) {
	iv := r.Current()
	iv.SegmentsSent += deltaSegments
	iv.SndEndSeq = newNextSeq
}

// graduateIfDue applies the graduation rule to the current
// interval, returning whether it has now graduated (its send window has
// elapsed after sending something). An invalid current interval never
// graduates.
func (r *MonitorRing) graduateIfDue(now time.Time) bool {
	iv := r.Current()
	if !iv.Valid {
		return false
	}
	elapsed := iv.elapsed(now)
	if iv.SegmentsSent < minSegmentsBeforeClose {
		for iv.EndTimeUS <= elapsed {
			iv.EndTimeUS += graduationExtension
		}
		return false
	}
	if iv.hasSentAnything() && elapsed > iv.EndTimeUS {
		iv.EndTimeUS = elapsed
		return true
	}
	return false
}

// AdvanceIfDue advances current_index if the current interval has graduated.
// It returns whether the ring advanced.
func (r *MonitorRing) AdvanceIfDue(now time.Time, log Logger) (advanced bool) {
	if !r.graduateIfDue(now) {
		return false
	}
	target := r.next(r.current)
	if r.slots[target].Valid {
		if log != nil {
			log.Warnf("ring: overrunning still-valid slot %d, forcibly invalidating", target)
		}
		r.slots[target].Valid = false
	}
	r.current = target
	return true
}

// closable reports whether the interval at index i has a send window that
// has elapsed and whose ACK frontier has caught up with its sends.
func (r *MonitorRing) closable(i int, now time.Time) bool {
	iv := &r.slots[i]
	if !iv.Valid {
		return false
	}
	if iv.elapsed(now) <= iv.EndTimeUS {
		return false
	}
	return !seqAfter(iv.SndEndSeq, iv.LastAckedSeq)
}

// Sweep iterates all valid slots in index order and invokes visit for each
// slot whose interval can be closed, then invalidates it. The order in
// which slots are visited is not part of the engine's external contract.
func (r *MonitorRing) Sweep(now time.Time, visit func(idx int, iv *MonitorInterval)) {
	for i := 0; i < RingSize; i++ {
		if r.closable(i, now) {
			visit(i, &r.slots[i])
			r.slots[i].Valid = false
		}
	}
}
