// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/DaraHeaphy/graphite/pkg/bridge"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge the serial link to a WebSocket uplink",
	Long: `Bridge the reactor's serial link to an upstream WebSocket consumer.

Telemetry frames decoded from the serial link are rendered as JSON and
published upstream at a fixed interval; only the latest sample is kept
between publishes, so a slow consumer always sees fresh data. JSON commands
received from upstream (SCRAM, RESET_NORMAL, SET_POWER) are translated into
Pylon command frames and forwarded over the serial link.

If the uplink session drops, the bridge reconnects with exponential backoff
while the serial side keeps caching telemetry.

Requires both --port and --url.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

// websocketUplink is a bridge.Uplink over a WebSocket session. Telemetry is
// published as JSON text messages; inbound text messages carry commands.
type websocketUplink struct {
	conn *websocket.Conn
}

func (u *websocketUplink) Publish(payload []byte) error {
	return u.conn.WriteMessage(websocket.TextMessage, payload)
}

func (u *websocketUplink) NextCommand() ([]byte, error) {
	for {
		messageType, data, err := u.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (u *websocketUplink) Close() error {
	return u.conn.Close()
}

// dialUplink opens the upstream WebSocket session with HTTP Basic auth
func dialUplink(wsURL, username, password string, skipSSLVerify bool) (*websocketUplink, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("uplink connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("uplink connection failed: %v", err)
	}

	return &websocketUplink{conn: conn}, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return fmt.Errorf("bridge requires a serial port (--port or config file)")
	}
	if wsURL == "" {
		return fmt.Errorf("bridge requires an uplink URL (--url)")
	}

	log := newLogger("bridge")

	password := ""
	if wsUsername != "" {
		password, err = GetPassword()
		if err != nil {
			return err
		}
	}

	serialConn, err := OpenSerialConnection(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	defer serialConn.Close()

	log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Str("uplink", wsURL).
		Msg("bridge starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backoff := 1 * time.Second
	const maxBackoff = 30 * time.Second

	for {
		uplink, err := dialUplink(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("uplink dial failed")
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		log.Info().Str("uplink", wsURL).Msg("uplink session established")
		backoff = 1 * time.Second

		b := bridge.New(serialConn, uplink, cfg.PublishInterval, log)
		err = b.Run(ctx)
		uplink.Close()

		if errors.Is(err, context.Canceled) {
			log.Info().Msg("shutdown")
			return nil
		}

		log.Warn().Err(err).Dur("retry_in", backoff).Msg("uplink session lost")
		if !sleepCtx(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// sleepCtx waits for the duration, returning false if the context was
// cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
