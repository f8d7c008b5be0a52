// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

func TestSimSensor_Deterministic(t *testing.T) {
	profile := DefaultSimProfile()
	profile.Seed = 42

	a := NewSimSensor(profile)
	b := NewSimSensor(profile)

	for i := 0; i < 100; i++ {
		sa, errA := a.Read()
		sb, errB := b.Read()
		if errA != nil || errB != nil {
			t.Fatalf("read %d failed: %v / %v", i, errA, errB)
		}
		if sa != sb {
			t.Fatalf("read %d diverged: %+v vs %+v", i, sa, sb)
		}
	}
}

func TestSimSensor_TemperatureStaysBounded(t *testing.T) {
	profile := DefaultSimProfile()
	profile.Seed = 7
	profile.MinTemp = 25.0
	profile.MaxTemp = 35.0
	profile.TempDrift = 5.0 // large drift to force clamping

	s := NewSimSensor(profile)

	for i := 0; i < 1000; i++ {
		sample, err := s.Read()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if sample.TemperatureC < profile.MinTemp || sample.TemperatureC > profile.MaxTemp {
			t.Fatalf("read %d: temperature %.2f outside [%.1f, %.1f]",
				i, sample.TemperatureC, profile.MinTemp, profile.MaxTemp)
		}
	}
}

func TestSimSensor_InjectFault(t *testing.T) {
	profile := DefaultSimProfile()
	profile.Seed = 1

	s := NewSimSensor(profile)
	s.InjectFault(2)

	if _, err := s.Read(); err == nil {
		t.Error("first read after InjectFault(2) should fail")
	}
	if _, err := s.Read(); err == nil {
		t.Error("second read after InjectFault(2) should fail")
	}
	if _, err := s.Read(); err != nil {
		t.Errorf("third read should recover, got %v", err)
	}
}

func TestSimSensor_InjectQuakeIsOneShot(t *testing.T) {
	profile := DefaultSimProfile()
	profile.Seed = 1
	profile.AccelJit = 0

	s := NewSimSensor(profile)
	s.InjectQuake(2.5)

	sample, err := s.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if sample.AccelMag != 2.5 {
		t.Errorf("quake read: accel = %.2f, want 2.5", sample.AccelMag)
	}

	sample, err = s.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if sample.AccelMag != profile.BaseAccel {
		t.Errorf("post-quake read: accel = %.2f, want base %.2f", sample.AccelMag, profile.BaseAccel)
	}
}

func TestSimSensor_HeatBiasDrivesRunaway(t *testing.T) {
	profile := DefaultSimProfile()
	profile.Seed = 3
	profile.TempDrift = 0 // isolate the bias

	s := NewSimSensor(profile)
	s.SetHeatBias(1.0)

	var last float32 = profile.BaseTemp
	for i := 0; i < 10; i++ {
		sample, err := s.Read()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if sample.TemperatureC <= last {
			t.Fatalf("read %d: temperature %.2f did not rise above %.2f", i, sample.TemperatureC, last)
		}
		last = sample.TemperatureC
	}

	if last < profile.BaseTemp+9.5 {
		t.Errorf("after 10 biased steps temperature = %.2f, want near %.2f", last, profile.BaseTemp+10)
	}
}

func TestLogIndicator_BlinksOnWarning(t *testing.T) {
	ind := NewLogIndicator(zerolog.Nop())

	ind.Set(pylon.StateWarning)
	first := ind.lit
	ind.Set(pylon.StateWarning)
	second := ind.lit

	if first == second {
		t.Error("indicator should toggle between consecutive WARNING steps")
	}

	ind.Set(pylon.StateScram)
	if !ind.lit {
		t.Error("indicator should be solid on in SCRAM")
	}

	ind.Set(pylon.StateNormal)
	if ind.lit {
		t.Error("indicator should be off in NORMAL")
	}
}
