// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Telemetry is one control-period sample produced by the reactor:
// a monotonically increasing sample counter, the sensor readings the step
// was computed from, and the resulting safety state and power level.
type Telemetry struct {
	SampleID     uint32
	TemperatureC float32
	AccelMag     float32
	State        State
	PowerPercent uint8
}

// MarshalPayload encodes the telemetry into its 14-byte wire payload:
// u32 sample_id | f32 temperature | f32 accel_mag | u8 state | u8 power,
// all multi-byte fields little-endian.
func (t *Telemetry) MarshalPayload() []byte {
	payload := make([]byte, TelemetryPayloadSize)
	binary.LittleEndian.PutUint32(payload[0:4], t.SampleID)
	binary.LittleEndian.PutUint32(payload[4:8], math.Float32bits(t.TemperatureC))
	binary.LittleEndian.PutUint32(payload[8:12], math.Float32bits(t.AccelMag))
	payload[12] = uint8(t.State)
	payload[13] = t.PowerPercent
	return payload
}

// EncodeTelemetry builds a complete telemetry frame ready for transmission.
func EncodeTelemetry(t *Telemetry) []byte {
	return MustEncodeFrame(MsgTelemetry, t.MarshalPayload())
}

// DecodeTelemetry parses a telemetry frame payload.
// The payload must be exactly TelemetryPayloadSize bytes.
func DecodeTelemetry(payload []byte) (*Telemetry, error) {
	if len(payload) != TelemetryPayloadSize {
		return nil, fmt.Errorf("telemetry payload wrong length: %d (expected %d)",
			len(payload), TelemetryPayloadSize)
	}

	return &Telemetry{
		SampleID:     binary.LittleEndian.Uint32(payload[0:4]),
		TemperatureC: math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8])),
		AccelMag:     math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12])),
		State:        State(payload[12]),
		PowerPercent: payload[13],
	}, nil
}
