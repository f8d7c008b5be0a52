// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// DefaultCommsPeriod is the comms loop polling cadence
const DefaultCommsPeriod = 10 * time.Millisecond

// CommsLoop shuttles frames between the serial transport and the control
// loop's channels: outbound telemetry records are encoded and transmitted
// oldest first, inbound bytes are fed through the frame decoder, and valid
// command frames land on the command channel.
//
// The transport's Read must be bounded (a serial port with a short read
// timeout); the loop treats n==0 as an idle poll.
type CommsLoop struct {
	transport io.ReadWriter
	decoder   *pylon.Decoder
	telemetry <-chan pylon.Telemetry
	commands  chan<- pylon.Command
	period    time.Duration
	log       zerolog.Logger
	stats     *pylon.Statistics
}

// NewCommsLoop creates a comms loop. A zero period selects the default.
func NewCommsLoop(transport io.ReadWriter, telemetry <-chan pylon.Telemetry,
	commands chan<- pylon.Command, period time.Duration, log zerolog.Logger) *CommsLoop {

	if period <= 0 {
		period = DefaultCommsPeriod
	}
	return &CommsLoop{
		transport: transport,
		decoder:   pylon.NewDecoder(),
		telemetry: telemetry,
		commands:  commands,
		period:    period,
		log:       log,
		stats:     pylon.NewStatistics(),
	}
}

// Statistics returns the loop's link statistics tracker
func (l *CommsLoop) Statistics() *pylon.Statistics {
	return l.stats
}

// Run polls the transport until the context is cancelled
func (l *CommsLoop) Run(ctx context.Context) error {
	l.log.Info().Dur("period", l.period).Msg("comms loop started")

	buf := make([]byte, 128)
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("comms loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Poll(buf)
		}
	}
}

// Poll runs one comms iteration: flush pending telemetry, then read and
// decode any available inbound bytes.
func (l *CommsLoop) Poll(buf []byte) {
	l.flushTelemetry()

	n, err := l.transport.Read(buf)
	if err != nil {
		// Serial reads with a timeout return n==0 without error when idle;
		// a real error here is transient line trouble, never fatal.
		l.log.Warn().Err(err).Msg("transport read error")
		return
	}
	if n > 0 {
		l.processRx(buf[:n])
	}
}

// flushTelemetry drains the telemetry channel and transmits every record,
// oldest first.
func (l *CommsLoop) flushTelemetry() {
	for {
		select {
		case t := <-l.telemetry:
			if _, err := l.transport.Write(pylon.EncodeTelemetry(&t)); err != nil {
				l.log.Warn().Err(err).Uint32("sample_id", t.SampleID).Msg("telemetry write failed")
			}
		default:
			return
		}
	}
}

// processRx feeds inbound bytes through the decoder and dispatches
// completed frames.
func (l *CommsLoop) processRx(data []byte) {
	for _, b := range data {
		frame, err := l.decoder.DecodeByte(b)
		if err != nil {
			l.stats.RecordDecodeError(err)
			l.log.Warn().Err(err).Msg("frame abandoned")
			continue
		}
		if frame != nil {
			l.stats.RecordFrame(frame)
			l.handleFrame(frame)
		}
	}
}

func (l *CommsLoop) handleFrame(frame *pylon.Frame) {
	if !frame.IsCommand() {
		// Not an error: the reactor side only consumes commands
		l.log.Warn().Uint8("type", frame.Type()).Msg("unexpected frame type, discarding")
		return
	}

	cmd, err := pylon.DecodeCommand(frame.Payload())
	if err != nil {
		// Checksum passed but the payload is semantically short or unknown
		l.stats.RecordShortCommand()
		l.log.Warn().Err(err).Msg("command frame dropped")
		return
	}

	select {
	case l.commands <- cmd:
	default:
		// A dropped SCRAM here is a real safety concern; the link has no
		// retry, so all we can do is say so loudly.
		l.log.Warn().Str("command", cmd.Name()).Msg("command queue full, dropping")
	}
}
