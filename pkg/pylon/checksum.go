// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

// Checksum computes the one-byte XOR checksum of a frame.
// The accumulator is seeded with msgType ^ length, then every payload byte
// is folded in left-to-right. This matches the running checksum the decoder
// accumulates while streaming.
func Checksum(msgType uint8, payload []byte) uint8 {
	c := msgType ^ uint8(len(payload))
	for _, b := range payload {
		c ^= b
	}
	return c
}
