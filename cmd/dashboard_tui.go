// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DaraHeaphy/graphite/pkg/pylon"
)

// Event log entry
type dashLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Messages
type dashTickMsg time.Time
type dashDataMsg struct {
	frame     *pylon.Frame
	decodeErr error
}
type dashBatchMsg struct {
	messages []dashDataMsg
}
type dashConnLostMsg struct{}
type dashReconnectedMsg struct {
	connInfo string
}

// TUI model
type dashModel struct {
	connMgr  *dashConnManager
	connInfo string

	stats         *pylon.Statistics
	eventLog      []dashLogEntry
	maxLogEntries int
	lastTelemetry *pylon.Telemetry
	lastSeen      time.Time

	// Power entry
	powerInput  textinput.Model
	inputActive bool

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

func initialDashModel(connMgr *dashConnManager, connInfo string) dashModel {
	ti := textinput.New()
	ti.Placeholder = "50"
	ti.CharLimit = 3
	ti.Width = 5

	return dashModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		stats:         pylon.NewStatistics(),
		eventLog:      make([]dashLogEntry, 0),
		maxLogEntries: 100,
		powerInput:    ti,
		width:         80,
		height:        24,
	}
}

func (m dashModel) Init() tea.Cmd {
	return tea.Batch(
		dashTickCmd(),
		tea.EnterAltScreen,
	)
}

func dashTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashTickMsg:
		m.stats.CalculateRates()
		return m, dashTickCmd()

	case dashConnLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case dashReconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)

	case dashBatchMsg:
		for _, data := range msg.messages {
			m.applyData(data)
		}
	}

	return m, nil
}

func (m *dashModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Power entry mode captures everything except Esc and Enter
	if m.inputActive {
		switch msg.String() {
		case "esc":
			m.inputActive = false
			m.powerInput.Blur()
			m.powerInput.SetValue("")
			return m, nil
		case "enter":
			return m.sendPowerCommand()
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.powerInput, cmd = m.powerInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "s":
		return m.sendSimpleCommand(pylon.NewScramCommand())

	case "r":
		return m.sendSimpleCommand(pylon.NewResetNormalCommand())

	case "p":
		m.inputActive = true
		m.powerInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

func (m *dashModel) sendSimpleCommand(c pylon.Command) (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	if err := m.connMgr.sendCommand(c); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send %s: %v", c.Name(), err), true)
		return m, nil
	}
	m.addLogEntry(fmt.Sprintf("Sent %s", c.Name()), false)
	return m, nil
}

func (m *dashModel) sendPowerCommand() (tea.Model, tea.Cmd) {
	valStr := m.powerInput.Value()
	if valStr == "" {
		valStr = m.powerInput.Placeholder
	}

	m.inputActive = false
	m.powerInput.Blur()
	m.powerInput.SetValue("")

	value, err := strconv.ParseInt(valStr, 10, 32)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid power value: %s", valStr), true)
		return m, nil
	}
	if value < 0 || value > 100 {
		m.addLogEntry("Power must be between 0 and 100", true)
		return m, nil
	}

	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	c := pylon.NewSetPowerCommand(int32(value))
	if err := m.connMgr.sendCommand(c); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send %s: %v", c.Name(), err), true)
		return m, nil
	}
	m.addLogEntry(fmt.Sprintf("Sent SET_POWER %d", value), false)
	return m, nil
}

func (m *dashModel) addLogEntry(message string, isError bool) {
	entry := dashLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// applyData folds one decoded frame or decode error into the model
func (m *dashModel) applyData(data dashDataMsg) {
	if data.decodeErr != nil {
		m.stats.RecordDecodeError(data.decodeErr)
		m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", data.decodeErr), true)
		return
	}
	if data.frame == nil {
		return
	}

	m.stats.RecordFrame(data.frame)

	if !data.frame.IsTelemetry() {
		return
	}

	t, err := pylon.DecodeTelemetry(data.frame.Payload())
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Malformed telemetry: %v", err), true)
		return
	}

	// Log state transitions
	if m.lastTelemetry != nil && t.State != m.lastTelemetry.State {
		isError := t.State == pylon.StateScram
		m.addLogEntry(fmt.Sprintf("State %s -> %s", m.lastTelemetry.State, t.State), isError)
	}

	m.lastTelemetry = t
	m.lastSeen = time.Now()
}

func (m dashModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("GRAPHITE - REACTOR DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | s: SCRAM  r: reset  p: set power  q: quit", m.connInfo)))
	s.WriteString("\n\n")

	if m.connectionLost {
		s.WriteString(errorStyle.Render("✗ Connection lost - reconnecting..."))
		s.WriteString("\n\n")
	}

	// Reactor state panel
	stateContent := strings.Builder{}
	if m.lastTelemetry == nil {
		stateContent.WriteString(warningStyle.Render("⏳ Waiting for telemetry..."))
	} else {
		t := m.lastTelemetry

		var stateStyle lipgloss.Style
		switch t.State {
		case pylon.StateNormal:
			stateStyle = valueStyle
		case pylon.StateWarning:
			stateStyle = warningStyle
		default:
			stateStyle = errorStyle
		}

		stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("State:"), stateStyle.Bold(true).Render(t.State.String()),
			labelStyle.Render("Power:"), valueStyle.Render(fmt.Sprintf("%d%%", t.PowerPercent)),
		))

		tempStr := fmt.Sprintf("%.1f°C", t.TemperatureC)
		if t.TemperatureC >= 50.0 {
			tempStr = errorStyle.Render(tempStr)
		} else if t.TemperatureC >= 45.0 {
			tempStr = warningStyle.Render(tempStr)
		} else {
			tempStr = valueStyle.Render(tempStr)
		}

		accelStr := fmt.Sprintf("%.2fg", t.AccelMag)
		if t.AccelMag >= 2.0 {
			accelStr = errorStyle.Render(accelStr)
		} else if t.AccelMag >= 0.8 {
			accelStr = warningStyle.Render(accelStr)
		} else {
			accelStr = valueStyle.Render(accelStr)
		}

		stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Temp:"), tempStr,
			labelStyle.Render("Accel:"), accelStr,
		))

		age := time.Since(m.lastSeen)
		sampleStr := fmt.Sprintf("%d (%.1fs ago)", t.SampleID, age.Seconds())
		if age > 2*time.Second {
			sampleStr = warningStyle.Render(sampleStr)
		} else {
			sampleStr = headerStyle.Render(sampleStr)
		}
		stateContent.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Sample:"), sampleStr))
	}

	s.WriteString(boxStyle.Render(stateContent.String()))
	s.WriteString("\n\n")

	// Power entry prompt
	if m.inputActive {
		s.WriteString(labelStyle.Render("Power %: "))
		s.WriteString(m.powerInput.View())
		s.WriteString(headerStyle.Render("  (Enter to send, Esc to cancel)"))
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	var validPercent float64
	valid := m.stats.TotalFrames - m.stats.ChecksumErrors - m.stats.OversizeFrames
	if m.stats.TotalFrames > 0 {
		validPercent = float64(valid) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", valid, validPercent)),
		labelStyle.Render("Errors:"), func() string {
			errs := m.stats.Errors()
			if errs > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", errs))
			}
			return valueStyle.Render("0")
		}(),
	))

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		labelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16 // Reserve space for header, state and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
