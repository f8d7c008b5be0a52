// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

// Package bridge implements the network-agent side of the link: it decodes
// telemetry frames arriving over the serial transport, republishes the
// latest value upstream as JSON, and translates inbound textual commands
// into Pylon command frames.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// TelemetryMessage is the upstream JSON rendering of a telemetry record
type TelemetryMessage struct {
	SampleID uint32  `json:"sample_id"`
	Temp     float32 `json:"temp"`
	AccelMag float32 `json:"accel_mag"`
	State    string  `json:"state"`
	Power    uint8   `json:"power"`
}

// CommandMessage is the upstream JSON form of an operator command
type CommandMessage struct {
	Command string `json:"command"`
	Value   *int32 `json:"value,omitempty"`
}

// RenderTelemetry encodes a telemetry record for upstream publishing
func RenderTelemetry(t *pylon.Telemetry) ([]byte, error) {
	msg := TelemetryMessage{
		SampleID: t.SampleID,
		Temp:     t.TemperatureC,
		AccelMag: t.AccelMag,
		State:    t.State.String(),
		Power:    t.PowerPercent,
	}
	return json.Marshal(msg)
}

// defaultSetPower is used when a SET_POWER command arrives without a value
const defaultSetPower int32 = 50

// TranslateCommand parses an upstream textual command into a wire command.
// Recognized commands: "SCRAM", "RESET_NORMAL", "SET_POWER" (with a numeric
// value; a missing value falls back to 50%).
func TranslateCommand(data []byte) (pylon.Command, error) {
	var msg CommandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return pylon.Command{}, fmt.Errorf("parse command: %w", err)
	}

	switch msg.Command {
	case "SCRAM":
		return pylon.NewScramCommand(), nil
	case "RESET_NORMAL":
		return pylon.NewResetNormalCommand(), nil
	case "SET_POWER":
		value := defaultSetPower
		if msg.Value != nil {
			value = *msg.Value
		}
		return pylon.NewSetPowerCommand(value), nil
	case "":
		return pylon.Command{}, fmt.Errorf("missing command field")
	default:
		return pylon.Command{}, fmt.Errorf("unknown command: %q", msg.Command)
	}
}
