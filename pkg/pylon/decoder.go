// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import (
	"fmt"
	"time"
)

// Decoder implements the Pylon protocol frame decoder state machine.
//
// The decoder is fed one byte at a time and resynchronizes itself after any
// malformed frame: an oversize length or a checksum mismatch discards only
// the frame in flight, and the decoder returns to waiting for the next
// start marker. A single decoder instance is reusable indefinitely.
type Decoder struct {
	state       int
	msgType     uint8
	length      uint8
	buffer      [MaxPayloadSize]byte
	bufferIndex int
	checksum    uint8
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{state: stateWaitStart}
}

// Reset resets the decoder to wait for the next start marker
func (d *Decoder) Reset() {
	d.state = stateWaitStart
	d.msgType = 0
	d.length = 0
	d.bufferIndex = 0
	d.checksum = 0
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil while a frame is still in flight.
// Returns an error when a frame is abandoned (oversize length, checksum
// mismatch); the decoder has already resynchronized when an error is
// returned, so the caller may keep feeding bytes.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateWaitStart:
		// Anything that is not the start marker is line noise
		if b == StartByte {
			d.state = stateReadType
		}
		return nil, nil

	case stateReadType:
		d.msgType = b
		d.checksum = b
		d.state = stateReadLen
		return nil, nil

	case stateReadLen:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.length = b
		d.checksum ^= b
		if b == 0 {
			d.state = stateReadChecksum
		} else {
			d.bufferIndex = 0
			d.state = stateReadPayload
		}
		return nil, nil

	case stateReadPayload:
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		d.checksum ^= b
		if d.bufferIndex >= int(d.length) {
			d.state = stateReadChecksum
		}
		return nil, nil

	case stateReadChecksum:
		if b != d.checksum {
			err := fmt.Errorf("checksum mismatch (type=0x%02X len=%d): expected 0x%02X, got 0x%02X",
				d.msgType, d.length, d.checksum, b)
			d.Reset()
			return nil, err
		}

		payload := make([]byte, d.length)
		copy(payload, d.buffer[:d.length])
		frame := &Frame{
			msgType:   d.msgType,
			payload:   payload,
			checksum:  b,
			timestamp: time.Now(),
		}

		d.Reset()
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Decode feeds a buffer of bytes through the decoder and collects every
// frame completed along the way. Decode errors abandon the frame in flight
// but never stop the scan; the last error seen is returned alongside the
// completed frames.
func (d *Decoder) Decode(data []byte) ([]*Frame, error) {
	var frames []*Frame
	var lastErr error

	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			lastErr = err
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}

	return frames, lastErr
}
