// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Stream
	fileName   string
	sampleRate int
	channels   int
	bitDepth   int
	total      uint64

	// Playback
	decoded uint64
	state   string
	errMsg  string
	volume  int
	muted   bool

	// Dimensions
	width  int
	height int

	volumeCtrl *VolumeControl
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderProgress()
	s += m.renderControls()
	s += m.renderHelp()

	return s
}

// renderHeader renders the file name and playback state
func (m Model) renderHeader() string {
	status := m.state
	if m.errMsg != "" {
		status = fmt.Sprintf("error: %s", truncate(m.errMsg, 38))
	}

	return fmt.Sprintf(`┌─ FLAC Player ────────────────────────────────────────┐
│ File:   %-45s │
│ Status: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(m.fileName, 45), status)
}

// renderStreamInfo renders the stream parameters
func (m Model) renderStreamInfo() string {
	if m.sampleRate == 0 {
		return "│ No stream                                            │\n"
	}

	return fmt.Sprintf("│ Format: FLAC %dHz %s %d-bit%-20s │\n",
		m.sampleRate, channelName(m.channels), m.bitDepth, "")
}

// renderProgress renders the decode position
func (m Model) renderProgress() string {
	if m.total == 0 || m.sampleRate == 0 {
		return fmt.Sprintf("│ Position: %s%-35s │\n", formatTime(m.decoded, m.sampleRate), "")
	}

	bar := renderBar(int(m.decoded*100/m.total), 100, 20)
	return fmt.Sprintf("│ Position: [%s] %s / %s%-8s │\n",
		bar, formatTime(m.decoded, m.sampleRate), formatTime(m.total, m.sampleRate), "")
}

// renderControls renders the volume status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│ Volume:   [%s] %d%%%s%-25s │\n",
		volumeBar, m.volume, muteIcon, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ ↑/↓:Volume  m:Mute  q:Quit                           │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.pushVolume()
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.pushVolume()
	case "m":
		m.muted = !m.muted
		m.pushVolume()
	}

	return m, nil
}

// pushVolume forwards the current volume state to the playback side
func (m Model) pushVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.FileName != "" {
		m.fileName = msg.FileName
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
		m.total = msg.TotalSamples
	}
	if msg.Decoded != nil {
		m.decoded = *msg.Decoded
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Err != "" {
		m.errMsg = msg.Err
		m.state = "error"
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	FileName     string
	SampleRate   int
	Channels     int
	BitDepth     int
	TotalSamples uint64
	Decoded      *uint64
	State        string
	Err          string
	Volume       int
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

// formatTime renders a sample position as m:ss for the given rate.
func formatTime(samples uint64, sampleRate int) string {
	if sampleRate == 0 {
		return "0:00"
	}
	seconds := samples / uint64(sampleRate)
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
