// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package pylon

import (
	"fmt"
	"strings"
	"time"
)

// Statistics tracks link-level frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	TelemetryFrames uint64
	CommandFrames   uint64
	UnknownFrames   uint64
	ChecksumErrors  uint64
	OversizeFrames  uint64
	ShortCommands   uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordFrame counts a successfully decoded frame
func (s *Statistics) RecordFrame(f *Frame) {
	s.TotalFrames++
	switch f.Type() {
	case MsgTelemetry:
		s.TelemetryFrames++
	case MsgCommand:
		s.CommandFrames++
	default:
		s.UnknownFrames++
	}
	s.LastUpdateTime = time.Now()
}

// RecordDecodeError counts an abandoned frame by decode error kind
func (s *Statistics) RecordDecodeError(err error) {
	s.TotalFrames++
	if strings.HasPrefix(err.Error(), "invalid length") {
		s.OversizeFrames++
	} else {
		s.ChecksumErrors++
	}
	s.LastUpdateTime = time.Now()
}

// RecordShortCommand counts a command frame whose payload was truncated
func (s *Statistics) RecordShortCommand() {
	s.ShortCommands++
	s.LastUpdateTime = time.Now()
}

// Errors returns the total number of recorded link errors
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.OversizeFrames + s.ShortCommands
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	valid := s.TotalFrames - s.ChecksumErrors - s.OversizeFrames
	if s.TotalFrames > 0 {
		validPercent = float64(valid) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", valid, validPercent)
	result += fmt.Sprintf("  Telemetry:     %8d\n", s.TelemetryFrames)
	result += fmt.Sprintf("  Commands:      %8d\n", s.CommandFrames)

	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("  Unknown Type:  %8d\n", s.UnknownFrames)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.OversizeFrames > 0 {
		result += fmt.Sprintf("Oversize Frames: %8d\n", s.OversizeFrames)
	}
	if s.ShortCommands > 0 {
		result += fmt.Sprintf("Short Commands:  %8d\n", s.ShortCommands)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "==================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
