// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

// Package reactor implements the reactor-side safety core: a three-state
// machine with hysteresis driven by a fixed-period control loop, and a
// comms loop that exchanges Pylon frames over the serial link.
package reactor

import (
	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// Safety thresholds. Fixed for this design; there is no runtime
// reconfiguration path.
const (
	TempWarning      float32 = 45.0
	TempCritical     float32 = 50.0
	MinorQuakeAccel  float32 = 0.8
	MajorQuakeAccel  float32 = 2.0
	HysteresisMargin float32 = 2.0
)

// DefaultPower is the power level on startup and after a RESET_NORMAL.
const DefaultPower uint8 = 50

// Sample is one sensor acquisition: temperature in °C and acceleration
// magnitude in g.
type Sample struct {
	TemperatureC float32
	AccelMag     float32
}

func clampPower(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return uint8(v)
}

// applyCommand applies a single command unconditionally.
// SCRAM and RESET_NORMAL override whatever state the reactor is in;
// SET_POWER changes only the power level.
func applyCommand(state pylon.State, power uint8, cmd pylon.Command) (pylon.State, uint8) {
	switch cmd.ID {
	case pylon.CmdScram:
		return pylon.StateScram, 0
	case pylon.CmdResetNormal:
		return pylon.StateNormal, DefaultPower
	case pylon.CmdSetPower:
		return state, clampPower(cmd.Value)
	default:
		return state, power
	}
}

// evaluate runs the environmental transition table against one sample.
func evaluate(state pylon.State, power uint8, temp, accel float32) (pylon.State, uint8) {
	majorQuake := accel > MajorQuakeAccel
	minorQuake := accel > MinorQuakeAccel

	switch state {
	case pylon.StateNormal:
		if temp >= TempCritical || majorQuake {
			return pylon.StateScram, 0
		}
		if temp >= TempWarning || minorQuake {
			return pylon.StateWarning, power
		}
		return pylon.StateNormal, power

	case pylon.StateWarning:
		if temp >= TempCritical || majorQuake {
			return pylon.StateScram, 0
		}
		if temp < TempWarning-HysteresisMargin {
			return pylon.StateNormal, power
		}
		return pylon.StateWarning, power

	default:
		// Scram holds until a RESET_NORMAL command; power stays at zero
		return pylon.StateScram, 0
	}
}

// Transition is the complete decision function for one control step.
//
// A failed sensor read dominates everything: unknown temperature is treated
// as worst case and the step yields (SCRAM, 0) even against a simultaneous
// RESET_NORMAL. Otherwise the command (if any) is applied first, then the
// environmental evaluation runs and may override it; a RESET_NORMAL under a
// still-critical temperature re-enters SCRAM within the same step.
func Transition(state pylon.State, power uint8, cmd *pylon.Command, temp, accel float32, sensorOK bool) (pylon.State, uint8) {
	if !sensorOK {
		return pylon.StateScram, 0
	}
	if cmd != nil {
		state, power = applyCommand(state, power, *cmd)
	}
	return evaluate(state, power, temp, accel)
}

// Core owns the reactor's mutable state. Only the control loop holds a
// Core; nothing else may mutate it.
type Core struct {
	state pylon.State
	power uint8
	log   zerolog.Logger
}

// NewCore creates a core in NORMAL at the default power level
func NewCore(log zerolog.Logger) *Core {
	return &Core{
		state: pylon.StateNormal,
		power: DefaultPower,
		log:   log,
	}
}

// State returns the current safety state
func (c *Core) State() pylon.State {
	return c.state
}

// Power returns the current power level (0..100)
func (c *Core) Power() uint8 {
	return c.power
}

// Apply applies one inbound command to the core
func (c *Core) Apply(cmd pylon.Command) {
	switch cmd.ID {
	case pylon.CmdScram:
		c.log.Warn().Msg("cmd: SCRAM")
	case pylon.CmdResetNormal:
		c.log.Info().Msg("cmd: RESET_NORMAL")
	case pylon.CmdSetPower:
		c.log.Info().Int32("value", cmd.Value).Msg("cmd: SET_POWER")
	default:
		c.log.Warn().Uint8("id", cmd.ID).Msg("unknown command")
	}
	c.state, c.power = applyCommand(c.state, c.power, cmd)
}

// Evaluate runs one environmental evaluation against a sensor sample.
// sensorOK=false triggers the fail-safe SCRAM.
func (c *Core) Evaluate(sample Sample, sensorOK bool) {
	prev := c.state

	if !sensorOK {
		c.state, c.power = pylon.StateScram, 0
	} else {
		c.state, c.power = evaluate(c.state, c.power, sample.TemperatureC, sample.AccelMag)
	}

	if c.state != prev {
		evt := c.log.Info()
		if c.state == pylon.StateScram {
			evt = c.log.Warn()
		}
		evt.Str("from", prev.String()).Str("to", c.state.String()).
			Float32("temp", sample.TemperatureC).Float32("accel", sample.AccelMag).
			Bool("sensor_ok", sensorOK).
			Msg("state transition")
	}
}
