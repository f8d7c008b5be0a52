// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package bridge

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
	"github.com/DaraHeaphy/graphite/pkg/reactor"
)

// DefaultPublishInterval is how often the latest telemetry value is
// republished upstream
const DefaultPublishInterval = 1 * time.Second

// Uplink is the upstream session the bridge publishes through.
// NextCommand blocks until an inbound command payload arrives or the
// session fails.
type Uplink interface {
	Publish(payload []byte) error
	NextCommand() ([]byte, error)
}

// Bridge pumps telemetry from the serial link to the uplink and commands
// from the uplink to the serial link. The upstream consumer is slower than
// the control loop's telemetry cadence, so the bridge keeps only the latest
// telemetry value: publishing always reflects the newest sample, and
// unconsumed older samples are overwritten rather than queued.
type Bridge struct {
	serial          io.ReadWriter
	uplink          Uplink
	latest          *reactor.Latest[pylon.Telemetry]
	decoder         *pylon.Decoder
	publishInterval time.Duration
	log             zerolog.Logger
	stats           *pylon.Statistics

	lastState pylon.State
	haveState bool
}

// New creates a bridge. A zero publish interval selects the default.
func New(serial io.ReadWriter, uplink Uplink, publishInterval time.Duration, log zerolog.Logger) *Bridge {
	if publishInterval <= 0 {
		publishInterval = DefaultPublishInterval
	}
	return &Bridge{
		serial:          serial,
		uplink:          uplink,
		latest:          reactor.NewLatest[pylon.Telemetry](),
		decoder:         pylon.NewDecoder(),
		publishInterval: publishInterval,
		log:             log,
		stats:           pylon.NewStatistics(),
	}
}

// Statistics returns the bridge's link statistics tracker
func (b *Bridge) Statistics() *pylon.Statistics {
	return b.stats
}

// Run starts the three pumps and blocks until the context is cancelled or
// the uplink session fails.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	go b.serialReader(ctx)
	go b.publisher(ctx)
	go func() {
		errCh <- b.uplinkReader(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// serialReader decodes inbound serial bytes and caches telemetry
func (b *Bridge) serialReader(ctx context.Context) {
	buf := make([]byte, 128)

	for ctx.Err() == nil {
		n, err := b.serial.Read(buf)
		if err != nil {
			b.log.Warn().Err(err).Msg("serial read error")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if n == 0 {
			// Idle poll on a timed-out read
			continue
		}
		b.ProcessSerial(buf[:n])
	}
}

// ProcessSerial feeds inbound serial bytes through the decoder and caches
// every decoded telemetry record as the latest value.
func (b *Bridge) ProcessSerial(data []byte) {
	for _, byt := range data {
		frame, err := b.decoder.DecodeByte(byt)
		if err != nil {
			b.stats.RecordDecodeError(err)
			b.log.Warn().Err(err).Msg("frame abandoned")
			continue
		}
		if frame == nil {
			continue
		}

		b.stats.RecordFrame(frame)
		if !frame.IsTelemetry() {
			b.log.Warn().Uint8("type", frame.Type()).Msg("unhandled frame type")
			continue
		}

		t, err := pylon.DecodeTelemetry(frame.Payload())
		if err != nil {
			b.log.Warn().Err(err).Msg("telemetry frame dropped")
			continue
		}

		b.latest.Put(*t)

		if !b.haveState || t.State != b.lastState {
			b.log.Info().Uint32("sample_id", t.SampleID).
				Float32("temp", t.TemperatureC).Float32("accel", t.AccelMag).
				Str("state", t.State.String()).Uint8("power", t.PowerPercent).
				Msg("telemetry")
			b.lastState = t.State
			b.haveState = true
		} else {
			b.log.Debug().Uint32("sample_id", t.SampleID).
				Float32("temp", t.TemperatureC).Msg("telemetry")
		}
	}
}

// publisher republishes the latest telemetry value upstream at a fixed
// interval. Nothing is published while no fresh value has arrived.
func (b *Bridge) publisher(ctx context.Context) {
	ticker := time.NewTicker(b.publishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.PublishLatest()
		}
	}
}

// PublishLatest publishes the latest unconsumed telemetry value, if any
func (b *Bridge) PublishLatest() {
	t, ok := b.latest.Take()
	if !ok {
		return
	}

	payload, err := RenderTelemetry(&t)
	if err != nil {
		b.log.Error().Err(err).Msg("render telemetry")
		return
	}
	if err := b.uplink.Publish(payload); err != nil {
		b.log.Warn().Err(err).Msg("uplink publish failed")
	}
}

// uplinkReader translates inbound upstream commands into command frames on
// the serial link. Returns when the uplink session ends.
func (b *Bridge) uplinkReader(ctx context.Context) error {
	for ctx.Err() == nil {
		payload, err := b.uplink.NextCommand()
		if err != nil {
			return err
		}
		b.HandleUplinkCommand(payload)
	}
	return ctx.Err()
}

// HandleUplinkCommand translates one upstream command payload and forwards
// it over the serial link. Malformed commands are logged and dropped.
func (b *Bridge) HandleUplinkCommand(payload []byte) {
	cmd, err := TranslateCommand(payload)
	if err != nil {
		b.log.Warn().Err(err).Msg("uplink command dropped")
		return
	}

	if _, err := b.serial.Write(pylon.EncodeCommand(cmd)); err != nil {
		b.log.Warn().Err(err).Str("command", cmd.Name()).Msg("command write failed")
		return
	}
	b.log.Info().Str("command", cmd.Name()).Int32("value", cmd.Value).Msg("command forwarded")
}
