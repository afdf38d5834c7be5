// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import "time"

// Transport is the capability surface the host transport exposes to the
// engine. The engine only ever consumes this interface; the
// transport stack itself, NIC/OS pacing plumbing, and kernel
// congestion-control registration glue are all out of scope and
// live in concrete implementations such as internal/linuxtransport and
// internal/simtransport.
type Transport interface {
	// NextSeqToSend returns the next sequence number to be sent.
	NextSeqToSend() Seq
	// SndUna returns the highest cumulatively acknowledged sequence number.
	SndUna() Seq
	// SACKBlocks returns up to four selective-acknowledgement ranges
	// reported by the peer; an unused slot is the zero value.
	SACKBlocks() [4]SACKBlock
	// DataSegsOut returns a monotonic count of data segments sent on the
	// connection.
	DataSegsOut() uint64
	// AdvMSS returns the advertised maximum segment size in bytes.
	AdvMSS() Bytes
	// SRTT returns the transport's smoothed round-trip-time estimate.
	SRTT() time.Duration
	// Now returns the current monotonic time.
	Now() time.Time

	// SetPacingRate publishes the engine's chosen pacing rate.
	SetPacingRate(Rate)
	// SetCWND sets the congestion window, used by the engine to disable
	// window-based limits.
	SetCWND(Bytes)
	// SetSndWnd optionally clamps the advertised send window.
	SetSndWnd(Bytes)
}

// LargeCWND is the congestion window value the engine publishes to
// effectively disable window-based sending limits.
const LargeCWND Bytes = 0x7fffffff

// InfiniteSsthresh is returned from the ssthresh hook, mirroring the host
// kernel's TCP_INFINITE_SSTHRESH.
const InfiniteSsthresh uint32 = 0x7fffffff

// DefaultSndWndClamp is the advertised send window clamp value, used only
// when SndWndClampEnabled is set in Config.
const DefaultSndWndClamp Bytes = 0xffffff
