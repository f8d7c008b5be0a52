// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// DefaultControlPeriod is the control loop cadence (10 Hz)
const DefaultControlPeriod = 100 * time.Millisecond

// Channel capacities for the reactor side. Telemetry and command sends are
// both non-blocking: a full channel drops the value with a warning.
const (
	TelemetryQueueSize = 32
	CommandQueueSize   = 8
)

// ControlLoop drives the safety core at a fixed period. It is the only
// holder of the Core; commands arrive over a bounded channel and telemetry
// leaves over another. Neither direction ever blocks the loop.
type ControlLoop struct {
	core      *Core
	sensor    Sensor
	indicator Indicator
	commands  <-chan pylon.Command
	telemetry chan<- pylon.Telemetry
	period    time.Duration
	log       zerolog.Logger

	sampleID uint32
}

// NewControlLoop creates a control loop. A zero period selects the default.
func NewControlLoop(core *Core, sensor Sensor, indicator Indicator,
	commands <-chan pylon.Command, telemetry chan<- pylon.Telemetry,
	period time.Duration, log zerolog.Logger) *ControlLoop {

	if period <= 0 {
		period = DefaultControlPeriod
	}
	return &ControlLoop{
		core:      core,
		sensor:    sensor,
		indicator: indicator,
		commands:  commands,
		telemetry: telemetry,
		period:    period,
		log:       log,
	}
}

// Run executes control steps at the fixed period until the context is
// cancelled.
func (l *ControlLoop) Run(ctx context.Context) error {
	l.log.Info().Dur("period", l.period).Msg("control loop started")

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("control loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs exactly one control period: apply pending commands in arrival
// order, acquire a sample, advance the state machine, drive the indicator,
// and emit one telemetry record. The sample counter increments by exactly
// one per step regardless of any other outcome.
func (l *ControlLoop) Step() pylon.Telemetry {
	// 1. Drain pending commands, oldest first. Later commands win for
	// conflicting fields since each applies unconditionally.
drain:
	for {
		select {
		case cmd := <-l.commands:
			l.core.Apply(cmd)
		default:
			break drain
		}
	}

	// 2. One sensor acquisition; a failed read fails safe
	sample, err := l.sensor.Read()
	sensorOK := err == nil
	if !sensorOK {
		l.log.Error().Err(err).Msg("sensor read failed, forcing scram")
	}

	// 3. Advance the state machine
	l.core.Evaluate(sample, sensorOK)

	// 4. Indicator side effect
	if l.indicator != nil {
		l.indicator.Set(l.core.State())
	}

	// 5. Build the telemetry record
	t := pylon.Telemetry{
		SampleID:     l.sampleID,
		TemperatureC: sample.TemperatureC,
		AccelMag:     sample.AccelMag,
		State:        l.core.State(),
		PowerPercent: l.core.Power(),
	}
	l.sampleID++

	// 6. Best-effort send; the next period's sample supersedes a dropped one
	select {
	case l.telemetry <- t:
	default:
		l.log.Warn().Uint32("sample_id", t.SampleID).Msg("telemetry queue full, dropping sample")
	}

	return t
}
