// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

var monitorStatsInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display decoded link traffic in human-readable format",
	Long: `Continuously decode and display Pylon frames as they arrive.

Each frame is shown with timestamp, message type, and decoded payload:
telemetry records with temperature, acceleration and reactor state, and
operator commands (SCRAM, RESET_NORMAL, SET_POWER). Decode errors are
printed inline; periodic link statistics summarize checksum errors,
oversize frames and truncated commands.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorStatsInterval, "stats-interval", 10*time.Second,
		"Interval between statistics summaries (0 disables)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Graphite - Link Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tick <-chan time.Time
	if monitorStatsInterval > 0 {
		ticker := time.NewTicker(monitorStatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Channel for non-blocking reads; the select loop below is the only
	// owner of the decoder and the statistics
	data := make(chan []byte, 10)
	go readChunks(conn, data)

	monitorLoop(data, tick, sigCh, os.Stdout)
	return nil
}

// readChunks copies inbound bytes onto the data channel until the
// connection ends, then closes it.
func readChunks(conn Connection, data chan<- []byte) {
	defer close(data)

	buf := make([]byte, 128)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return
			}
			log.Printf("Read error: %v", err)
			continue
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			data <- chunk
		}
	}
}

// monitorLoop decodes inbound chunks and prints frames, decode errors and
// periodic statistics summaries. Everything that touches the decoder or the
// statistics is serialized through the one select loop. Returns when the
// data channel closes or a shutdown signal arrives, after printing a final
// summary.
func monitorLoop(data <-chan []byte, tick <-chan time.Time, sigCh <-chan os.Signal, out io.Writer) *pylon.Statistics {
	decoder := pylon.NewDecoder()
	stats := pylon.NewStatistics()

	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				fmt.Fprint(out, stats.String())
				return stats
			}
			for _, b := range chunk {
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					stats.RecordDecodeError(err)
					fmt.Fprintf(out, "[ERROR] %v\n", err)
					continue
				}
				if frame != nil {
					stats.RecordFrame(frame)
					fmt.Fprint(out, pylon.FormatFrame(frame))
				}
			}

		case <-tick:
			fmt.Fprint(out, stats.String())

		case <-sigCh:
			fmt.Fprintf(out, "\n%s", stats.String())
			return stats
		}
	}
}
