// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import (
	"strings"
	"testing"
)

func TestDecodeCommand_Valid(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Command
	}{
		{"scram", []byte{CmdScram}, Command{ID: CmdScram}},
		{"reset normal", []byte{CmdResetNormal}, Command{ID: CmdResetNormal}},
		{"set power 75", []byte{CmdSetPower, 75, 0, 0, 0}, Command{ID: CmdSetPower, Value: 75}},
		{"set power negative", []byte{CmdSetPower, 0xFF, 0xFF, 0xFF, 0xFF}, Command{ID: CmdSetPower, Value: -1}},
		{"set power with trailing bytes", []byte{CmdSetPower, 10, 0, 0, 0, 0xAB}, Command{ID: CmdSetPower, Value: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand(tt.payload)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if cmd != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, cmd)
			}
		})
	}
}

func TestDecodeCommand_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		errPart string
	}{
		{"empty", nil, "empty"},
		{"unknown id", []byte{0x42}, "unknown command id"},
		{"set power truncated to id only", []byte{CmdSetPower}, "too short"},
		{"set power truncated value", []byte{CmdSetPower, 50, 0}, "too short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.payload)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("expected error containing %q, got: %v", tt.errPart, err)
			}
		})
	}
}

func TestCommand_RoundTrip(t *testing.T) {
	commands := []Command{
		NewScramCommand(),
		NewResetNormalCommand(),
		NewSetPowerCommand(0),
		NewSetPowerCommand(100),
		NewSetPowerCommand(-500),
	}

	for _, want := range commands {
		t.Run(want.Name(), func(t *testing.T) {
			wire := EncodeCommand(want)

			frames, errs := feedBytes(NewDecoder(), wire)
			if len(errs) != 0 || len(frames) != 1 {
				t.Fatalf("decode failed: frames=%d errs=%v", len(frames), errs)
			}
			if !frames[0].IsCommand() {
				t.Fatalf("expected command frame, got type 0x%02X", frames[0].Type())
			}

			got, err := DecodeCommand(frames[0].Payload())
			if err != nil {
				t.Fatalf("payload decode error: %v", err)
			}
			if got != want {
				t.Errorf("round trip mismatch: sent %+v, got %+v", want, got)
			}
		})
	}
}

func TestCommand_Name(t *testing.T) {
	if got := NewScramCommand().Name(); got != "SCRAM" {
		t.Errorf("expected SCRAM, got %s", got)
	}
	if got := (Command{ID: 0x99}).Name(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("expected UNKNOWN name, got %s", got)
	}
}
