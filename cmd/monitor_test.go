// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

func TestMonitorLoop_CountsFramesAndErrors(t *testing.T) {
	valid := pylon.EncodeCommand(pylon.NewScramCommand())

	corrupt := pylon.EncodeCommand(pylon.NewResetNormalCommand())
	corrupt[len(corrupt)-1] ^= 0xFF

	data := make(chan []byte, 4)
	data <- valid
	data <- corrupt
	data <- pylon.EncodeCommand(pylon.NewSetPowerCommand(75))
	close(data)

	var out bytes.Buffer
	stats := monitorLoop(data, nil, nil, &out)

	if stats.CommandFrames != 2 {
		t.Errorf("CommandFrames = %d, want 2", stats.CommandFrames)
	}
	if stats.ChecksumErrors != 1 {
		t.Errorf("ChecksumErrors = %d, want 1", stats.ChecksumErrors)
	}
	if !strings.Contains(out.String(), "[ERROR]") {
		t.Error("output should contain the decode error line")
	}
	if !strings.Contains(out.String(), "SCRAM") {
		t.Error("output should contain the decoded SCRAM command")
	}
	// Final summary printed when the data channel closes
	if !strings.Contains(out.String(), "Link Statistics") {
		t.Error("output should end with a statistics summary")
	}
}

// Statistics updates and the periodic summaries must stay serialized in the
// one loop: stream frames from another goroutine while the stats ticker
// fires as fast as it can, and verify every frame is still counted.
func TestMonitorLoop_StatsTickerWhileStreaming(t *testing.T) {
	const frames = 500
	wire := pylon.EncodeCommand(pylon.NewSetPowerCommand(50))

	data := make(chan []byte, 10)
	go func() {
		defer close(data)
		for i := 0; i < frames; i++ {
			data <- wire
		}
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	stats := monitorLoop(data, ticker.C, nil, io.Discard)

	if stats.TotalFrames != frames {
		t.Errorf("TotalFrames = %d, want %d", stats.TotalFrames, frames)
	}
	if stats.Errors() != 0 {
		t.Errorf("Errors() = %d, want 0", stats.Errors())
	}
}

func TestMonitorLoop_SignalPrintsSummaryAndReturns(t *testing.T) {
	data := make(chan []byte, 1)
	data <- pylon.EncodeCommand(pylon.NewScramCommand())

	sigCh := make(chan os.Signal, 1)

	done := make(chan *pylon.Statistics)
	var out bytes.Buffer
	go func() {
		done <- monitorLoop(data, nil, sigCh, &out)
	}()

	// Let the frame drain before shutting down
	for len(data) > 0 {
		time.Sleep(time.Millisecond)
	}
	sigCh <- syscall.SIGINT

	select {
	case stats := <-done:
		if stats.TotalFrames != 1 {
			t.Errorf("TotalFrames = %d, want 1", stats.TotalFrames)
		}
	case <-time.After(time.Second):
		t.Fatal("monitorLoop did not return after signal")
	}

	if !strings.Contains(out.String(), "Link Statistics") {
		t.Error("summary should be printed on shutdown")
	}
}

// fakeConn yields its scripted chunks then reports a closed connection
type fakeConn struct {
	chunks [][]byte
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if len(f.chunks) == 0 {
		return 0, ErrConnectionClosed
	}
	n := copy(p, f.chunks[0])
	f.chunks = f.chunks[1:]
	return n, nil
}

func (f *fakeConn) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeConn) Close() error                { return nil }

func TestReadChunks_ClosesChannelOnConnectionEnd(t *testing.T) {
	conn := &fakeConn{chunks: [][]byte{{0xAA, 0x10}, {0x01, 0x01, 0x10}}}

	data := make(chan []byte, 4)
	readChunks(conn, data)

	var got []byte
	for chunk := range data {
		got = append(got, chunk...)
	}
	want := []byte{0xAA, 0x10, 0x01, 0x01, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("chunks = % X, want % X", got, want)
	}
}
