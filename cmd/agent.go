// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Interactive operator console for the reactor link",
	Long: `Operate the reactor over the serial link from a line-oriented console.

Incoming telemetry frames are decoded and printed as they arrive. Commands
typed at the console are encoded as Pylon command frames and transmitted:

  scram          emergency shutdown
  reset          return to NORMAL (refused by the reactor if unsafe)
  power <0-100>  set power output percentage
  quit           exit the console

Supports both serial and WebSocket connections. For a full-screen dashboard
use 'graphite dashboard' instead.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Graphite - Operator Console\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Commands: scram | reset | power <0-100> | quit\n\n")

	done := make(chan struct{})

	// Reader goroutine: decode and print incoming frames
	go func() {
		decoder := pylon.NewDecoder()
		buf := make([]byte, 128)
		for {
			select {
			case <-done:
				return
			default:
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-done:
					return
				default:
				}
				if err == ErrConnectionClosed {
					log.Printf("Connection closed")
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}

			for i := 0; i < n; i++ {
				frame, err := decoder.DecodeByte(buf[i])
				if err != nil {
					fmt.Printf("[ERROR] %v\n", err)
					continue
				}
				if frame != nil && frame.IsTelemetry() {
					fmt.Print(pylon.FormatFrame(frame))
				}
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, err := parseConsoleCommand(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if command == nil {
			break // quit
		}

		wire := pylon.EncodeCommand(*command)
		if _, err := conn.Write(wire); err != nil {
			close(done)
			return fmt.Errorf("write command: %w", err)
		}
		fmt.Printf("sent %s\n", command.Name())
	}

	close(done)
	return scanner.Err()
}

// parseConsoleCommand translates a console line into a command. A nil
// command with nil error means quit.
func parseConsoleCommand(line string) (*pylon.Command, error) {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case "scram":
		c := pylon.NewScramCommand()
		return &c, nil
	case "reset":
		c := pylon.NewResetNormalCommand()
		return &c, nil
	case "power":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: power <0-100>")
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid power value %q", fields[1])
		}
		if value < 0 || value > 100 {
			return nil, fmt.Errorf("power must be between 0 and 100")
		}
		c := pylon.NewSetPowerCommand(int32(value))
		return &c, nil
	case "quit", "exit":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}
