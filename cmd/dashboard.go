// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for monitoring and operating the reactor",
	Long: `Operate the reactor from a full-screen terminal dashboard.

The dashboard shows the live reactor state (NORMAL, WARNING, SCRAM) with
the latest temperature, acceleration and power readings, link statistics,
and an event log. Operator commands are bound to keys:

  s      SCRAM (emergency shutdown)
  r      RESET_NORMAL (refused by the reactor if unsafe)
  p      set power output (type a value, Enter to send, Esc to cancel)
  q      quit

The connection reconnects automatically with exponential backoff.

Supports both serial and WebSocket connections.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

// dashConnManager handles connection lifecycle and reconnection
type dashConnManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (cm *dashConnManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *dashConnManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

func runDashboard(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &dashConnManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialDashModel(cm, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.readerLoop()

	if _, err := p.Run(); err != nil {
		close(cm.done)
		cm.getConn().Close()
		return fmt.Errorf("TUI error: %v", err)
	}

	close(cm.done)
	cm.getConn().Close()
	return nil
}

// readerLoop handles reading from the connection with automatic reconnection
func (cm *dashConnManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		connLost := cm.readFromConnection()

		if connLost {
			cm.p.Send(dashConnLostMsg{})

			if !cm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// readFromConnection decodes frames until the connection fails.
// Returns true if the connection was lost, false if shutdown was requested.
func (cm *dashConnManager) readFromConnection() bool {
	decoder := pylon.NewDecoder()

	// Buffered channel for batching updates
	batchChan := make(chan dashDataMsg, 100)
	readerDone := make(chan struct{})

	// Reader goroutine - decodes frames and sends to batch channel
	go func() {
		defer close(readerDone)
		buf := make([]byte, 128)
		for {
			select {
			case <-cm.done:
				return
			default:
			}

			conn := cm.getConn()
			if conn == nil {
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-cm.done:
					return
				default:
					// For WebSocket connections, a read error usually means
					// the connection is permanently closed
					if err == ErrConnectionClosed {
						return
					}
					// Brief pause before retry on transient errors (e.g., serial)
					time.Sleep(10 * time.Millisecond)
					continue
				}
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])

				if decodeErr != nil {
					select {
					case batchChan <- dashDataMsg{decodeErr: decodeErr}:
					default:
					}
				} else if frame != nil {
					select {
					case batchChan <- dashDataMsg{frame: frame}:
					default:
					}
				}
			}
		}
	}()

	// Batch sender goroutine - sends batched updates to TUI at fixed rate
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-cm.done:
				return
			case <-readerDone:
				return
			case <-ticker.C:
				var batch dashBatchMsg

			drainLoop:
				for {
					select {
					case msg := <-batchChan:
						batch.messages = append(batch.messages, msg)
					default:
						break drainLoop
					}
				}

				if len(batch.messages) > 0 {
					cm.p.Send(batch)
				}
			}
		}
	}()

	<-readerDone

	select {
	case <-cm.done:
		return false
	default:
		return true // Connection lost
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *dashConnManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.p.Send(dashReconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// sendCommand encodes and transmits an operator command
func (cm *dashConnManager) sendCommand(c pylon.Command) error {
	conn := cm.getConn()
	if conn == nil {
		return fmt.Errorf("connection lost")
	}
	_, err := conn.Write(pylon.EncodeCommand(c))
	return err
}
