// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
	"github.com/DaraHeaphy/graphite/pkg/reactor"
)

var reactorCmd = &cobra.Command{
	Use:   "reactor",
	Short: "Run the reactor-side control and comms loops",
	Long: `Run the reactor side of the link: the fixed-period safety control loop
and the serial comms loop, connected by bounded channels.

The control loop reads the (simulated) sensor once per period, advances the
three-state safety machine, and queues one telemetry record. The comms loop
transmits queued telemetry as Pylon frames and decodes inbound command
frames (SCRAM, RESET_NORMAL, SET_POWER).

Sensor acquisition is simulated; tune the [sim] section of the config file
to shape the temperature drift and acceleration jitter. At runtime,
SIGUSR1 injects a one-shot major quake and SIGUSR2 injects a sensor fault,
to exercise the scram and fail-safe paths.

Requires a serial connection (--port).`,
	RunE: runReactor,
}

func init() {
	rootCmd.AddCommand(reactorCmd)
}

func runReactor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return fmt.Errorf("reactor requires a serial port (--port or config file)")
	}

	log := newLogger("reactor")

	conn, err := OpenSerialConnection(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("serial link open")

	telemetry := make(chan pylon.Telemetry, cfg.TelemetryQueue)
	commands := make(chan pylon.Command, cfg.CommandQueue)

	core := reactor.NewCore(log.With().Str("task", "control").Logger())
	sensor := reactor.NewSimSensor(cfg.Sim)
	indicator := reactor.NewLogIndicator(log.With().Str("task", "indicator").Logger())

	control := reactor.NewControlLoop(core, sensor, indicator, commands, telemetry,
		cfg.ControlPeriod, log.With().Str("task", "control").Logger())
	comms := reactor.NewCommsLoop(conn, telemetry, commands,
		cfg.CommsPeriod, log.With().Str("task", "comms").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fault injection for exercising the scram and fail-safe paths
	injectCh := make(chan os.Signal, 1)
	signal.Notify(injectCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range injectCh {
			switch sig {
			case syscall.SIGUSR1:
				log.Info().Msg("injecting major quake")
				sensor.InjectQuake(2.5)
			case syscall.SIGUSR2:
				log.Info().Msg("injecting sensor fault")
				sensor.InjectFault(1)
			}
		}
	}()

	// The two loops share nothing but the channels
	errCh := make(chan error, 2)
	go func() { errCh <- control.Run(ctx) }()
	go func() { errCh <- comms.Run(ctx) }()

	err = <-errCh
	stop()
	<-errCh

	if errors.Is(err, context.Canceled) {
		log.Info().Msg("shutdown")
		return nil
	}
	return err
}
