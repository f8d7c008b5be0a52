// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// fakeTransport is an in-memory serial stand-in: Read drains a scripted
// inbound buffer in bounded chunks, Write accumulates outbound bytes.
type fakeTransport struct {
	inbound  bytes.Buffer
	outbound bytes.Buffer
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	// Bounded read; returns 0 when idle, like a serial port with a timeout
	return f.inbound.Read(p[:min(len(p), 64)])
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	return f.outbound.Write(p)
}

func newTestComms(transport *fakeTransport, telemetryCap, commandCap int) (*CommsLoop, chan pylon.Telemetry, chan pylon.Command) {
	telemetry := make(chan pylon.Telemetry, telemetryCap)
	commands := make(chan pylon.Command, commandCap)
	loop := NewCommsLoop(transport, telemetry, commands, DefaultCommsPeriod, zerolog.Nop())
	return loop, telemetry, commands
}

func TestCommsLoop_TransmitsTelemetryOldestFirst(t *testing.T) {
	transport := &fakeTransport{}
	loop, telemetry, _ := newTestComms(transport, 8, 8)

	for i := uint32(0); i < 3; i++ {
		telemetry <- pylon.Telemetry{SampleID: i, State: pylon.StateNormal, PowerPercent: 50}
	}
	loop.Poll(make([]byte, 128))

	frames, err := pylon.NewDecoder().Decode(transport.outbound.Bytes())
	if err != nil {
		t.Fatalf("decode error on transmitted bytes: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 transmitted frames, got %d", len(frames))
	}
	for i, f := range frames {
		telem, err := pylon.DecodeTelemetry(f.Payload())
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if telem.SampleID != uint32(i) {
			t.Errorf("frame %d: expected sample_id %d, got %d", i, i, telem.SampleID)
		}
	}
}

func TestCommsLoop_DeliversValidCommands(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 8)

	transport.inbound.Write(pylon.EncodeCommand(pylon.NewScramCommand()))
	transport.inbound.Write(pylon.EncodeCommand(pylon.NewSetPowerCommand(42)))
	loop.Poll(make([]byte, 128))

	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}
	if cmd := <-commands; cmd.ID != pylon.CmdScram {
		t.Errorf("first command: expected SCRAM, got %s", cmd.Name())
	}
	if cmd := <-commands; cmd.ID != pylon.CmdSetPower || cmd.Value != 42 {
		t.Errorf("second command: expected SET_POWER 42, got %+v", cmd)
	}
}

func TestCommsLoop_CorruptFrameDoesNotStallLink(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 8)

	corrupt := pylon.EncodeCommand(pylon.NewScramCommand())
	corrupt[len(corrupt)-1] ^= 0xFF
	transport.inbound.Write(corrupt)
	transport.inbound.Write(pylon.EncodeCommand(pylon.NewResetNormalCommand()))
	loop.Poll(make([]byte, 128))

	if len(commands) != 1 {
		t.Fatalf("expected 1 command (corrupt dropped), got %d", len(commands))
	}
	if cmd := <-commands; cmd.ID != pylon.CmdResetNormal {
		t.Errorf("expected RESET_NORMAL, got %s", cmd.Name())
	}
	if loop.Statistics().ChecksumErrors != 1 {
		t.Errorf("expected 1 recorded checksum error, got %d", loop.Statistics().ChecksumErrors)
	}
}

func TestCommsLoop_ShortSetPowerDropped(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 8)

	// Well-formed frame at the byte level, semantically short command:
	// SET_POWER id with no value bytes
	transport.inbound.Write(pylon.MustEncodeFrame(pylon.MsgCommand, []byte{pylon.CmdSetPower}))
	loop.Poll(make([]byte, 128))

	if len(commands) != 0 {
		t.Fatalf("expected short command dropped, got %d commands", len(commands))
	}
	if loop.Statistics().ShortCommands != 1 {
		t.Errorf("expected 1 recorded short command, got %d", loop.Statistics().ShortCommands)
	}
}

func TestCommsLoop_UnknownFrameTypeDiscarded(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 8)

	transport.inbound.Write(pylon.MustEncodeFrame(0x55, []byte{1, 2, 3}))
	transport.inbound.Write(pylon.EncodeCommand(pylon.NewScramCommand()))
	loop.Poll(make([]byte, 128))

	if len(commands) != 1 {
		t.Fatalf("expected unknown type discarded and command delivered, got %d", len(commands))
	}
}

func TestCommsLoop_CommandDropOnFull(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 1)

	transport.inbound.Write(pylon.EncodeCommand(pylon.NewSetPowerCommand(1)))
	transport.inbound.Write(pylon.EncodeCommand(pylon.NewSetPowerCommand(2)))
	loop.Poll(make([]byte, 128))

	if len(commands) != 1 {
		t.Fatalf("expected 1 queued command, got %d", len(commands))
	}
	if cmd := <-commands; cmd.Value != 1 {
		t.Errorf("expected first command kept (drop-newest), got value %d", cmd.Value)
	}
}

// Multiple inbound frames split across reads must survive chunk boundaries
func TestCommsLoop_FragmentedReads(t *testing.T) {
	transport := &fakeTransport{}
	loop, _, commands := newTestComms(transport, 8, 8)

	wire := pylon.EncodeCommand(pylon.NewSetPowerCommand(77))
	buf := make([]byte, 128)
	for _, b := range wire {
		transport.inbound.WriteByte(b)
		loop.Poll(buf)
	}

	if len(commands) != 1 {
		t.Fatalf("expected 1 command across fragmented reads, got %d", len(commands))
	}
	if cmd := <-commands; cmd.Value != 77 {
		t.Errorf("expected value 77, got %d", cmd.Value)
	}
}
