// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// Sensor acquires one temperature/acceleration sample per control period.
// A returned error means the reading is unusable and the step must fail safe.
type Sensor interface {
	Read() (Sample, error)
}

// Indicator is the operator-facing state output, driven once per step.
// Normal is off, Warning blinks, Scram is solid on.
type Indicator interface {
	Set(state pylon.State)
}

// SimProfile configures the simulated sensor
type SimProfile struct {
	BaseTemp  float32 // starting temperature °C
	TempDrift float32 // max random walk per step
	MinTemp   float32
	MaxTemp   float32
	BaseAccel float32 // resting acceleration magnitude
	AccelJit  float32 // random jitter around BaseAccel
	Seed      int64   // 0 picks a random seed
}

// DefaultSimProfile returns a profile that idles well below the warning
// threshold and drifts slowly.
func DefaultSimProfile() SimProfile {
	return SimProfile{
		BaseTemp:  30.0,
		TempDrift: 0.5,
		MinTemp:   20.0,
		MaxTemp:   85.0,
		BaseAccel: 0.2,
		AccelJit:  0.1,
	}
}

// SimSensor stands in for the hardware temperature/accelerometer pair: the
// temperature random-walks within bounds and the acceleration jitters
// around its base. Faults, quakes and runaway heating can be injected at
// runtime to exercise the safety machine.
type SimSensor struct {
	mu      sync.Mutex
	rng     *rand.Rand
	profile SimProfile
	temp    float32

	failNext  int     // inject this many failed reads
	heatBias  float32 // applied per step, simulates runaway heating
	nextQuake float32 // one-shot acceleration spike
}

// NewSimSensor creates a simulated sensor from a profile
func NewSimSensor(profile SimProfile) *SimSensor {
	seed := profile.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &SimSensor{
		rng:     rand.New(rand.NewSource(seed)),
		profile: profile,
		temp:    profile.BaseTemp,
	}
}

// Read returns the next simulated sample
func (s *SimSensor) Read() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		return Sample{}, fmt.Errorf("sensor fault injected")
	}

	drift := (s.rng.Float32()*2 - 1) * s.profile.TempDrift
	s.temp += drift + s.heatBias
	if s.temp < s.profile.MinTemp {
		s.temp = s.profile.MinTemp
	}
	if s.temp > s.profile.MaxTemp {
		s.temp = s.profile.MaxTemp
	}

	accel := s.profile.BaseAccel + (s.rng.Float32()*2-1)*s.profile.AccelJit
	if s.nextQuake > 0 {
		accel = s.nextQuake
		s.nextQuake = 0
	}

	return Sample{TemperatureC: s.temp, AccelMag: accel}, nil
}

// InjectFault makes the next n reads fail
func (s *SimSensor) InjectFault(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// SetHeatBias adds a per-step temperature bias (positive simulates runaway
// heating, negative simulates cooling)
func (s *SimSensor) SetHeatBias(bias float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heatBias = bias
}

// InjectQuake makes the next read report the given acceleration magnitude
func (s *SimSensor) InjectQuake(mag float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuake = mag
}

// LogIndicator renders the indicator as log output: off for NORMAL, a
// blink toggle per step for WARNING, solid on for SCRAM.
type LogIndicator struct {
	log   zerolog.Logger
	blink bool
	last  pylon.State
	lit   bool
}

// NewLogIndicator creates an indicator that logs level changes
func NewLogIndicator(log zerolog.Logger) *LogIndicator {
	return &LogIndicator{log: log}
}

// Set drives the indicator from the current state
func (i *LogIndicator) Set(state pylon.State) {
	var lit bool
	switch state {
	case pylon.StateWarning:
		i.blink = !i.blink
		lit = i.blink
	case pylon.StateScram:
		lit = true
	default:
		lit = false
	}

	if state != i.last || lit != i.lit {
		i.log.Debug().Str("state", state.String()).Bool("lit", lit).Msg("indicator")
	}
	i.last = state
	i.lit = lit
}
