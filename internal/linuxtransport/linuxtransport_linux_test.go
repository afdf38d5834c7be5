// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

//go:build linux

package linuxtransport

import (
	"net"
	"testing"

	"github.com/heistp/pcc/internal/pcc"
)

// listenAndDial opens a loopback TCP connection and returns the client
// side's raw file descriptor, closing over the *os.File/net.Conn lifetimes
// via t.Cleanup.
func listenAndDial(t *testing.T) (clientFD int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		c, aerr := ln.Accept()
		if aerr == nil {
			accepted <- c
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	srv := <-accepted
	t.Cleanup(func() { srv.Close() })

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		t.Fatal("expected *net.TCPConn")
	}
	f, err := tcpConn.File()
	if err != nil {
		t.Fatalf("File(): %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return int(f.Fd())
}

func TestNewReadsRealTCPInfo(t *testing.T) {
	fd := listenAndDial(t)
	tr, err := New(fd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.AdvMSS() == 0 {
		t.Error("expected a nonzero advertised MSS from a real loopback socket")
	}
	if tr.Now().IsZero() {
		t.Error("Now() returned the zero time")
	}
}

// SetPacingRate and SetSndWnd swallow setsockopt errors, so this only checks
// that both calls complete on a real socket.
func TestSetPacingRateAndSndWndComplete(t *testing.T) {
	fd := listenAndDial(t)
	tr, err := New(fd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.SetPacingRate(pcc.InitialRate)
	tr.SetSndWnd(pcc.DefaultSndWndClamp)
}

func TestSACKBlocksEmptyWithoutLoss(t *testing.T) {
	fd := listenAndDial(t)
	tr, err := New(fd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	blocks := tr.SACKBlocks()
	if blocks != ([4]pcc.SACKBlock{}) {
		t.Errorf("expected no SACK blocks on an idle, lossless loopback connection, got %+v", blocks)
	}
}

func TestSRTTIsNonNegative(t *testing.T) {
	fd := listenAndDial(t)
	tr, err := New(fd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.SRTT() < 0 {
		t.Errorf("SRTT() = %v, want >= 0", tr.SRTT())
	}
}
