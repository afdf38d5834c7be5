// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

//go:build !linux

package linuxtransport

import (
	"errors"
	"time"

	"github.com/heistp/pcc/internal/pcc"
)

// ErrUnsupported is returned by New on platforms other than linux.
var ErrUnsupported = errors.New("linuxtransport: not supported on this platform")

// Transport is a build stub so cmd/pccd can reference linuxtransport.Transport
// unconditionally and fail at runtime with ErrUnsupported rather than
// failing to compile on non-Linux hosts.
type Transport struct{}

// New always fails on non-Linux platforms.
func New(fd int) (*Transport, error) {
	return nil, ErrUnsupported
}

func (t *Transport) NextSeqToSend() pcc.Seq       { return 0 }
func (t *Transport) SndUna() pcc.Seq              { return 0 }
func (t *Transport) SACKBlocks() [4]pcc.SACKBlock { return [4]pcc.SACKBlock{} }
func (t *Transport) DataSegsOut() uint64          { return 0 }
func (t *Transport) AdvMSS() pcc.Bytes            { return 0 }
func (t *Transport) SRTT() time.Duration          { return 0 }
func (t *Transport) Now() time.Time               { return time.Time{} }
func (t *Transport) SetPacingRate(pcc.Rate)       {}
func (t *Transport) SetCWND(pcc.Bytes)            {}
func (t *Transport) SetSndWnd(pcc.Bytes)          {}

var _ pcc.Transport = (*Transport)(nil)
