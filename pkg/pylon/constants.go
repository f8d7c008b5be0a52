// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

// Package pylon provides a Go implementation of the Pylon serial protocol.
//
// Pylon is the binary framing protocol used on the point-to-point link
// between a reactor controller and its network agent. This package provides
// frame encoding/decoding, checksum validation, telemetry and command
// payload codecs, and payload formatting.
package pylon

// Protocol framing
const (
	StartByte      = 0xAA
	MaxPayloadSize = 64
)

// Message types
const (
	MsgTelemetry = 0x01
	MsgCommand   = 0x10
)

// Command ids (first payload byte of a MsgCommand frame)
const (
	CmdScram       = 1
	CmdResetNormal = 2
	CmdSetPower    = 3
)

// Payload sizes
const (
	// TelemetryPayloadSize is u32 sample_id + f32 temp + f32 accel + u8 state + u8 power.
	TelemetryPayloadSize = 14

	// Command payload is a single id byte, plus an i32 value for SET_POWER.
	CommandPayloadSize         = 1
	CommandSetPowerPayloadSize = 5
)

// Decoder states (internal)
const (
	stateWaitStart = iota
	stateReadType
	stateReadLen
	stateReadPayload
	stateReadChecksum
)

// State represents the reactor safety state carried in telemetry frames.
type State uint8

// Reactor state wire values
const (
	StateNormal State = iota
	StateWarning
	StateScram
)

// String returns the canonical upper-case state name used on the uplink.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateScram:
		return "SCRAM"
	default:
		return "UNKNOWN"
	}
}
