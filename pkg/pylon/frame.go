// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import "time"

// Frame represents a decoded Pylon protocol frame
type Frame struct {
	msgType   uint8
	payload   []byte
	checksum  uint8
	timestamp time.Time
}

// NewFrame creates a frame from a message type and payload.
// The checksum is computed from the fields.
func NewFrame(msgType uint8, payload []byte) *Frame {
	return &Frame{
		msgType:   msgType,
		payload:   payload,
		checksum:  Checksum(msgType, payload),
		timestamp: time.Now(),
	}
}

// Type returns the frame's message type
func (f *Frame) Type() uint8 {
	return f.msgType
}

// Payload returns the frame's payload bytes
func (f *Frame) Payload() []byte {
	return f.payload
}

// Length returns the frame's payload length
func (f *Frame) Length() uint8 {
	return uint8(len(f.payload))
}

// Checksum returns the frame's checksum byte
func (f *Frame) Checksum() uint8 {
	return f.checksum
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsTelemetry returns true for telemetry frames
func (f *Frame) IsTelemetry() bool {
	return f.msgType == MsgTelemetry
}

// IsCommand returns true for command frames
func (f *Frame) IsCommand() bool {
	return f.msgType == MsgCommand
}
