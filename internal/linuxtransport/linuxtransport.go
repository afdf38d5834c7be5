// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

//go:build linux

// Package linuxtransport implements pcc.Transport over a real Linux TCP
// socket, reading kernel congestion state via TCP_INFO and publishing the
// engine's decisions back via SO_MAX_PACING_RATE and TCP_WINDOW_CLAMP.
//
// TCP_INFO does not carry SACK block ranges; the kernel only exposes
// aggregate loss and retransmit counters. SACKBlocks synthesizes a single
// synthetic hole sized from tcpi_lost (times snd_mss) so AckAccounting still
// has something to subtract, at the cost of losing the hole's exact
// boundaries. This is a known approximation, not a faithful SACK feed.
package linuxtransport

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/heistp/pcc/internal/pcc"
)

// Transport drives a single TCP connection identified by fd.
type Transport struct {
	fd  int
	mss pcc.Bytes

	mu       sync.Mutex
	lastInfo *unix.TCPInfo
}

// New wraps fd, an already-connected TCP socket, as a pcc.Transport. The
// caller retains ownership of fd and must close it after Release.
func New(fd int) (*Transport, error) {
	t := &Transport{fd: fd}
	info, err := t.readInfo()
	if err != nil {
		return nil, fmt.Errorf("linuxtransport: initial TCP_INFO read: %w", err)
	}
	t.mss = pcc.Bytes(info.Advmss)
	return t, nil
}

func (t *Transport) readInfo() (*unix.TCPInfo, error) {
	info, err := unix.GetsockoptTCPInfo(t.fd, syscall.SOL_TCP, syscall.TCP_INFO)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.lastInfo = info
	t.mu.Unlock()
	return info, nil
}

func (t *Transport) info() *unix.TCPInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastInfo == nil {
		return &unix.TCPInfo{}
	}
	return t.lastInfo
}

// NextSeqToSend implements pcc.Transport using tcpi_bytes_sent truncated to
// 32 bits, since TCP_INFO does not expose the raw 32 bit sequence space
// directly: the engine only needs a monotonically advancing, wrapping
// counter, which bytes_sent already provides.
func (t *Transport) NextSeqToSend() pcc.Seq {
	info, err := t.readInfo()
	if err != nil {
		return pcc.Seq(t.info().Bytes_sent)
	}
	return pcc.Seq(info.Bytes_sent)
}

// SndUna implements pcc.Transport.
func (t *Transport) SndUna() pcc.Seq {
	return pcc.Seq(t.info().Bytes_acked)
}

// SACKBlocks implements pcc.Transport with the synthetic single-hole
// approximation described in the package doc comment.
func (t *Transport) SACKBlocks() [4]pcc.SACKBlock {
	info := t.info()
	if info.Lost == 0 {
		return [4]pcc.SACKBlock{}
	}
	holeBytes := uint64(info.Lost) * uint64(info.Snd_mss)
	start := pcc.Seq(info.Bytes_acked)
	end := start + pcc.Seq(holeBytes)
	return [4]pcc.SACKBlock{{Start: start, End: end}}
}

// DataSegsOut implements pcc.Transport.
func (t *Transport) DataSegsOut() uint64 {
	return uint64(t.info().Data_segs_out)
}

// AdvMSS implements pcc.Transport.
func (t *Transport) AdvMSS() pcc.Bytes {
	if t.mss != 0 {
		return t.mss
	}
	return pcc.Bytes(t.info().Advmss)
}

// SRTT implements pcc.Transport. TCP_INFO reports rtt in microseconds.
func (t *Transport) SRTT() time.Duration {
	return time.Duration(t.info().Rtt) * time.Microsecond
}

// Now implements pcc.Transport.
func (t *Transport) Now() time.Time {
	return time.Now()
}

// SetPacingRate implements pcc.Transport via SO_MAX_PACING_RATE. Errors are
// swallowed here since Transport has no logger of its own; callers that
// care about setsockopt failures should prefer SetPacingRateContext-style
// wrapping at the cmd/pccd layer. Kept minimal to match pcc.Transport's
// error-free signature.
func (t *Transport) SetPacingRate(r pcc.Rate) {
	_ = unix.SetsockoptUint64(t.fd, syscall.SOL_SOCKET, unix.SO_MAX_PACING_RATE, uint64(r))
}

// SetCWND implements pcc.Transport. Linux has no direct setsockopt for
// snd_cwnd; the engine's cong_control hook is expected to already run
// inside kernel congestion-control context on real deployments. In this
// userspace adapter, SetCWND is a no-op: the value is neither applied to
// the kernel nor recorded.
func (t *Transport) SetCWND(pcc.Bytes) {}

// SetSndWnd implements pcc.Transport via TCP_WINDOW_CLAMP.
func (t *Transport) SetSndWnd(b pcc.Bytes) {
	_ = unix.SetsockoptInt(t.fd, syscall.SOL_TCP, unix.TCP_WINDOW_CLAMP, int(b))
}

var _ pcc.Transport = (*Transport)(nil)
