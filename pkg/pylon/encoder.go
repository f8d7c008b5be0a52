// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import "fmt"

// EncodeFrame builds a complete wire-formatted Pylon frame:
// start marker, message type, payload length, payload bytes, checksum.
// Returns an error if the payload exceeds the protocol cap.
func EncodeFrame(msgType uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	frame := make([]byte, 0, 4+len(payload))
	frame = append(frame, StartByte, msgType, uint8(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, Checksum(msgType, payload))

	return frame, nil
}

// MustEncodeFrame encodes a frame and panics on error.
// Use only where the payload size is guaranteed by construction.
func MustEncodeFrame(msgType uint8, payload []byte) []byte {
	data, err := EncodeFrame(msgType, payload)
	if err != nil {
		panic(fmt.Sprintf("pylon: encode error: %v", err))
	}
	return data
}

// Encode encodes an existing Frame back to wire format.
func (f *Frame) Encode() ([]byte, error) {
	return EncodeFrame(f.msgType, f.payload)
}
