// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import (
	"encoding/binary"
	"fmt"
)

// Command is a decoded command frame payload.
// ID is one of CmdScram, CmdResetNormal, CmdSetPower; Value carries the
// requested power level for CmdSetPower and is zero otherwise.
type Command struct {
	ID    uint8
	Value int32
}

// Name returns the command's wire name as used on the uplink.
func (c Command) Name() string {
	switch c.ID {
	case CmdScram:
		return "SCRAM"
	case CmdResetNormal:
		return "RESET_NORMAL"
	case CmdSetPower:
		return "SET_POWER"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", c.ID)
	}
}

// Command builder functions create Command values ready for encoding.

// NewScramCommand creates an emergency shutdown command.
func NewScramCommand() Command {
	return Command{ID: CmdScram}
}

// NewResetNormalCommand creates a command that returns the reactor to
// NORMAL at 50% power. Always honored as a manual override, regardless of
// the reactor's current state.
func NewResetNormalCommand() Command {
	return Command{ID: CmdResetNormal}
}

// NewSetPowerCommand creates a power level command.
// The reactor clamps the value to 0..100 on application.
func NewSetPowerCommand(value int32) Command {
	return Command{ID: CmdSetPower, Value: value}
}

// MarshalPayload encodes the command into its wire payload:
// u8 command_id, followed by an i32 little-endian value for SET_POWER only.
func (c Command) MarshalPayload() []byte {
	if c.ID == CmdSetPower {
		payload := make([]byte, CommandSetPowerPayloadSize)
		payload[0] = c.ID
		binary.LittleEndian.PutUint32(payload[1:5], uint32(c.Value))
		return payload
	}
	return []byte{c.ID}
}

// EncodeCommand builds a complete command frame ready for transmission.
func EncodeCommand(c Command) []byte {
	return MustEncodeFrame(MsgCommand, c.MarshalPayload())
}

// DecodeCommand parses a command frame payload.
//
// A frame can pass its checksum and still be semantically short (a SET_POWER
// with fewer than 5 bytes); such truncated commands are rejected rather than
// read past the payload.
func DecodeCommand(payload []byte) (Command, error) {
	if len(payload) < CommandPayloadSize {
		return Command{}, fmt.Errorf("empty command payload")
	}

	id := payload[0]
	switch id {
	case CmdScram, CmdResetNormal:
		return Command{ID: id}, nil

	case CmdSetPower:
		if len(payload) < CommandSetPowerPayloadSize {
			return Command{}, fmt.Errorf("SET_POWER payload too short: %d bytes (expected %d)",
				len(payload), CommandSetPowerPayloadSize)
		}
		value := int32(binary.LittleEndian.Uint32(payload[1:5]))
		return Command{ID: id, Value: value}, nil

	default:
		return Command{}, fmt.Errorf("unknown command id: 0x%02X", id)
	}
}
