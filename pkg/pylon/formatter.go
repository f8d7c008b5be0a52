// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import "fmt"

// FormatFrame renders a frame with timestamp, message type and decoded
// payload in human-readable form for the monitor commands.
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n",
		timestamp, FormatMessageType(f.Type()), f.Type(), f.Length())

	if f.Length() > 0 {
		result += FormatPayload(f.Type(), f.Payload())
	}

	return result
}

// FormatMessageType returns the name of a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgTelemetry:
		return "TELEMETRY"
	case MsgCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload renders a payload according to its message type,
// falling back to a hex dump for unrecognized or malformed payloads.
func FormatPayload(msgType uint8, payload []byte) string {
	switch msgType {
	case MsgTelemetry:
		t, err := DecodeTelemetry(payload)
		if err == nil {
			return fmt.Sprintf("  Sample %d: temp=%.1f°C accel=%.2fg state=%s power=%d%%\n",
				t.SampleID, t.TemperatureC, t.AccelMag, t.State, t.PowerPercent)
		}

	case MsgCommand:
		cmd, err := DecodeCommand(payload)
		if err == nil {
			if cmd.ID == CmdSetPower {
				return fmt.Sprintf("  Command: %s value=%d\n", cmd.Name(), cmd.Value)
			}
			return fmt.Sprintf("  Command: %s\n", cmd.Name())
		}
	}

	// Default: hex dump
	result := "  Payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
