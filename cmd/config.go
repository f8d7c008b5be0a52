// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/DaraHeaphy/graphite/pkg/bridge"
	"github.com/DaraHeaphy/graphite/pkg/reactor"
)

// Config collects the runtime settings for the link commands. Safety
// thresholds are deliberately absent: those are fixed constants in
// pkg/reactor, not configuration.
type Config struct {
	Port string
	Baud int

	ControlPeriod  time.Duration
	CommsPeriod    time.Duration
	TelemetryQueue int
	CommandQueue   int

	PublishInterval time.Duration

	Sim reactor.SimProfile
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		Baud:            115200,
		ControlPeriod:   reactor.DefaultControlPeriod,
		CommsPeriod:     reactor.DefaultCommsPeriod,
		TelemetryQueue:  reactor.TelemetryQueueSize,
		CommandQueue:    reactor.CommandQueueSize,
		PublishInterval: bridge.DefaultPublishInterval,
		Sim:             reactor.DefaultSimProfile(),
	}
}

type fileConfig struct {
	Port            string        `toml:"port"`
	Baud            int           `toml:"baud"`
	ControlPeriod   string        `toml:"control_period"`
	CommsPeriod     string        `toml:"comms_period"`
	TelemetryQueue  int           `toml:"telemetry_queue"`
	CommandQueue    int           `toml:"command_queue"`
	PublishInterval string        `toml:"publish_interval"`
	Sim             fileSimConfig `toml:"sim"`
}

type fileSimConfig struct {
	BaseTemp    float32 `toml:"base_temp"`
	TempDrift   float32 `toml:"temp_drift"`
	MinTemp     float32 `toml:"min_temp"`
	MaxTemp     float32 `toml:"max_temp"`
	BaseAccel   float32 `toml:"base_accel"`
	AccelJitter float32 `toml:"accel_jitter"`
	Seed        int64   `toml:"seed"`
}

// LoadConfig overlays a TOML file onto the defaults. Only keys present in
// the file override defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return Config{}, fmt.Errorf("baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}

	if meta.IsDefined("control_period") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ControlPeriod))
		if err != nil {
			return Config{}, fmt.Errorf("parse control_period: %w", err)
		}
		cfg.ControlPeriod = d
	}
	if meta.IsDefined("comms_period") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommsPeriod))
		if err != nil {
			return Config{}, fmt.Errorf("parse comms_period: %w", err)
		}
		cfg.CommsPeriod = d
	}

	if meta.IsDefined("telemetry_queue") {
		if raw.TelemetryQueue < 1 {
			return Config{}, fmt.Errorf("telemetry_queue must be at least 1, got %d", raw.TelemetryQueue)
		}
		cfg.TelemetryQueue = raw.TelemetryQueue
	}
	if meta.IsDefined("command_queue") {
		if raw.CommandQueue < 1 {
			return Config{}, fmt.Errorf("command_queue must be at least 1, got %d", raw.CommandQueue)
		}
		cfg.CommandQueue = raw.CommandQueue
	}

	if meta.IsDefined("publish_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PublishInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse publish_interval: %w", err)
		}
		cfg.PublishInterval = d
	}

	if meta.IsDefined("sim", "base_temp") {
		cfg.Sim.BaseTemp = raw.Sim.BaseTemp
	}
	if meta.IsDefined("sim", "temp_drift") {
		cfg.Sim.TempDrift = raw.Sim.TempDrift
	}
	if meta.IsDefined("sim", "min_temp") {
		cfg.Sim.MinTemp = raw.Sim.MinTemp
	}
	if meta.IsDefined("sim", "max_temp") {
		cfg.Sim.MaxTemp = raw.Sim.MaxTemp
	}
	if meta.IsDefined("sim", "base_accel") {
		cfg.Sim.BaseAccel = raw.Sim.BaseAccel
	}
	if meta.IsDefined("sim", "accel_jitter") {
		cfg.Sim.AccelJit = raw.Sim.AccelJitter
	}
	if meta.IsDefined("sim", "seed") {
		cfg.Sim.Seed = raw.Sim.Seed
	}

	return cfg, nil
}

// resolveConfig loads the --config file (if given) and applies the
// connection flags on top.
func resolveConfig() (Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return Config{}, err
		}
	}

	if portName != "" {
		cfg.Port = portName
	}
	if rootCmd.PersistentFlags().Changed("baud") {
		cfg.Baud = baudRate
	}

	return cfg, nil
}
