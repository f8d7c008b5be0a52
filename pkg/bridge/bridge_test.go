// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package bridge

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

func TestRenderTelemetry(t *testing.T) {
	telem := &pylon.Telemetry{
		SampleID:     7,
		TemperatureC: 46.5,
		AccelMag:     0.25,
		State:        pylon.StateWarning,
		PowerPercent: 80,
	}

	data, err := RenderTelemetry(telem)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got["sample_id"] != float64(7) {
		t.Errorf("sample_id: got %v", got["sample_id"])
	}
	if got["state"] != "WARNING" {
		t.Errorf("state: expected WARNING, got %v", got["state"])
	}
	if got["power"] != float64(80) {
		t.Errorf("power: got %v", got["power"])
	}
	for _, key := range []string{"sample_id", "temp", "accel_mag", "state", "power"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
}

func TestTranslateCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    pylon.Command
		wantErr string
	}{
		{"scram", `{"command":"SCRAM"}`, pylon.NewScramCommand(), ""},
		{"reset", `{"command":"RESET_NORMAL"}`, pylon.NewResetNormalCommand(), ""},
		{"set power", `{"command":"SET_POWER","value":75}`, pylon.NewSetPowerCommand(75), ""},
		{"set power defaults to 50", `{"command":"SET_POWER"}`, pylon.NewSetPowerCommand(50), ""},
		{"set power zero is explicit", `{"command":"SET_POWER","value":0}`, pylon.NewSetPowerCommand(0), ""},
		{"unknown command", `{"command":"MELTDOWN"}`, pylon.Command{}, "unknown command"},
		{"missing command", `{"value":5}`, pylon.Command{}, "missing command"},
		{"malformed json", `{"command":`, pylon.Command{}, "parse command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateCommand([]byte(tt.payload))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

// fakeSerial records writes; reads are unused in these tests
type fakeSerial struct {
	out bytes.Buffer
}

func (f *fakeSerial) Read(p []byte) (int, error)  { return 0, nil }
func (f *fakeSerial) Write(p []byte) (int, error) { return f.out.Write(p) }

// fakeUplink records published payloads
type fakeUplink struct {
	published [][]byte
}

func (f *fakeUplink) Publish(payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeUplink) NextCommand() ([]byte, error) {
	select {} // never used directly in these tests
}

func newTestBridge() (*Bridge, *fakeSerial, *fakeUplink) {
	serial := &fakeSerial{}
	uplink := &fakeUplink{}
	return New(serial, uplink, DefaultPublishInterval, zerolog.Nop()), serial, uplink
}

func TestBridge_PublishesOnlyLatestTelemetry(t *testing.T) {
	b, _, uplink := newTestBridge()

	// Ten telemetry frames arrive between publishes; only the newest
	// survives the overwrite cell
	for i := uint32(0); i < 10; i++ {
		b.ProcessSerial(pylon.EncodeTelemetry(&pylon.Telemetry{
			SampleID: i, State: pylon.StateNormal, PowerPercent: 50,
		}))
	}
	b.PublishLatest()

	if len(uplink.published) != 1 {
		t.Fatalf("expected 1 published payload, got %d", len(uplink.published))
	}
	var msg TelemetryMessage
	if err := json.Unmarshal(uplink.published[0], &msg); err != nil {
		t.Fatalf("invalid published JSON: %v", err)
	}
	if msg.SampleID != 9 {
		t.Errorf("expected newest sample 9, got %d", msg.SampleID)
	}

	// Nothing new since: the next publish tick is silent
	b.PublishLatest()
	if len(uplink.published) != 1 {
		t.Errorf("expected no republish of a consumed value, got %d", len(uplink.published))
	}
}

func TestBridge_CorruptTelemetryIgnored(t *testing.T) {
	b, _, uplink := newTestBridge()

	wire := pylon.EncodeTelemetry(&pylon.Telemetry{SampleID: 1})
	wire[len(wire)-1] ^= 0xFF
	b.ProcessSerial(wire)
	b.PublishLatest()

	if len(uplink.published) != 0 {
		t.Errorf("corrupt frame must not publish, got %d payloads", len(uplink.published))
	}
	if b.Statistics().ChecksumErrors != 1 {
		t.Errorf("expected 1 checksum error, got %d", b.Statistics().ChecksumErrors)
	}
}

func TestBridge_ForwardsUplinkCommands(t *testing.T) {
	b, serial, _ := newTestBridge()

	b.HandleUplinkCommand([]byte(`{"command":"SET_POWER","value":33}`))

	frames, err := pylon.NewDecoder().Decode(serial.out.Bytes())
	if err != nil {
		t.Fatalf("decode error on forwarded bytes: %v", err)
	}
	if len(frames) != 1 || !frames[0].IsCommand() {
		t.Fatalf("expected 1 command frame, got %d", len(frames))
	}
	cmd, err := pylon.DecodeCommand(frames[0].Payload())
	if err != nil {
		t.Fatalf("command decode error: %v", err)
	}
	if cmd.ID != pylon.CmdSetPower || cmd.Value != 33 {
		t.Errorf("expected SET_POWER 33, got %+v", cmd)
	}
}

func TestBridge_MalformedUplinkCommandDropped(t *testing.T) {
	b, serial, _ := newTestBridge()

	b.HandleUplinkCommand([]byte(`{"command":"EXPLODE"}`))
	b.HandleUplinkCommand([]byte(`not json`))

	if serial.out.Len() != 0 {
		t.Errorf("malformed commands must not reach the serial link, wrote %d bytes", serial.out.Len())
	}
}
