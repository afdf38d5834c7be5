// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package simtransport is an in-memory pcc.Transport double driven by an
// injectable send/ack schedule. It has no scheduler of its own: the caller
// drives time and events directly, which is what internal/pcc's own tests
// and cmd/pccd's no-kernel fallback path need.
package simtransport

import (
	"time"

	"github.com/heistp/pcc/internal/pcc"
)

// Transport is a fake pcc.Transport suitable for tests and local
// demonstration. It has no network behavior of its own: callers advance its
// clock and feed send/ack progress explicitly.
type Transport struct {
	now    time.Time
	mss    pcc.Bytes
	srtt   time.Duration
	nextSeq pcc.Seq
	sndUna  pcc.Seq
	sack    [4]pcc.SACKBlock
	segsOut uint64

	PacingRate pcc.Rate
	CWND       pcc.Bytes
	SndWnd     pcc.Bytes
}

// New returns a Transport starting at t0 with the given MSS and smoothed
// RTT estimate.
func New(t0 time.Time, mss pcc.Bytes, srtt time.Duration) *Transport {
	return &Transport{
		now:  t0,
		mss:  mss,
		srtt: srtt,
	}
}

// Advance moves the simulated clock forward by d.
func (t *Transport) Advance(d time.Duration) {
	t.now = t.now.Add(d)
}

// Send records nSegments more data segments sent, advancing next_seq_to_send
// by nSegments*MSS.
func (t *Transport) Send(nSegments int) {
	t.segsOut += uint64(nSegments)
	t.nextSeq += pcc.Seq(uint32(nSegments) * uint32(t.mss))
}

// Ack advances snd_una to seq, clearing any previously injected SACK blocks.
func (t *Transport) Ack(seq pcc.Seq) {
	t.sndUna = seq
	t.sack = [4]pcc.SACKBlock{}
}

// SetSACK injects up to four SACK blocks for the next accounting pass.
func (t *Transport) SetSACK(blocks [4]pcc.SACKBlock) {
	t.sack = blocks
}

// NextSeqToSend implements pcc.Transport.
func (t *Transport) NextSeqToSend() pcc.Seq { return t.nextSeq }

// SndUna implements pcc.Transport.
func (t *Transport) SndUna() pcc.Seq { return t.sndUna }

// SACKBlocks implements pcc.Transport.
func (t *Transport) SACKBlocks() [4]pcc.SACKBlock { return t.sack }

// DataSegsOut implements pcc.Transport.
func (t *Transport) DataSegsOut() uint64 { return t.segsOut }

// AdvMSS implements pcc.Transport.
func (t *Transport) AdvMSS() pcc.Bytes { return t.mss }

// SRTT implements pcc.Transport.
func (t *Transport) SRTT() time.Duration { return t.srtt }

// Now implements pcc.Transport.
func (t *Transport) Now() time.Time { return t.now }

// SetPacingRate implements pcc.Transport.
func (t *Transport) SetPacingRate(r pcc.Rate) { t.PacingRate = r }

// SetCWND implements pcc.Transport.
func (t *Transport) SetCWND(b pcc.Bytes) { t.CWND = b }

// SetSndWnd implements pcc.Transport.
func (t *Transport) SetSndWnd(b pcc.Bytes) { t.SndWnd = b }
