// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, message handling, and state transitions
package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// keyMsg builds the key message bubbletea would deliver for a key press.
func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // VolumeControl is optional for testing

	// Check initial state
	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}

	if model.muted {
		t.Error("expected muted to be false initially")
	}

	if model.state != "idle" {
		t.Errorf("expected state 'idle', got '%s'", model.state)
	}
}

func TestStatusMsgStreamInfo(t *testing.T) {
	model := NewModel(nil)

	msg := StatusMsg{
		FileName:     "track.flac",
		SampleRate:   44100,
		Channels:     2,
		BitDepth:     16,
		TotalSamples: 441000,
	}

	model.applyStatus(msg)

	if model.fileName != "track.flac" {
		t.Errorf("expected fileName 'track.flac', got '%s'", model.fileName)
	}

	if model.sampleRate != 44100 {
		t.Errorf("expected sampleRate 44100, got %d", model.sampleRate)
	}

	if model.channels != 2 {
		t.Errorf("expected channels 2, got %d", model.channels)
	}

	if model.bitDepth != 16 {
		t.Errorf("expected bitDepth 16, got %d", model.bitDepth)
	}

	if model.total != 441000 {
		t.Errorf("expected total 441000, got %d", model.total)
	}
}

func TestStatusMsgProgress(t *testing.T) {
	model := NewModel(nil)

	decoded := uint64(4096)
	model.applyStatus(StatusMsg{Decoded: &decoded})

	if model.decoded != 4096 {
		t.Errorf("expected decoded 4096, got %d", model.decoded)
	}

	// A zero progress update is still an update
	zero := uint64(0)
	model.applyStatus(StatusMsg{Decoded: &zero})

	if model.decoded != 0 {
		t.Errorf("expected decoded 0, got %d", model.decoded)
	}
}

func TestStatusMsgState(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{State: "playing"})

	if model.state != "playing" {
		t.Errorf("expected state 'playing', got '%s'", model.state)
	}

	// An error message forces the error state
	model.applyStatus(StatusMsg{Err: "frame CRC mismatch"})

	if model.state != "error" {
		t.Errorf("expected state 'error', got '%s'", model.state)
	}

	if model.errMsg != "frame CRC mismatch" {
		t.Errorf("expected errMsg to be set, got '%s'", model.errMsg)
	}
}

func TestMultipleStatusUpdates(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		FileName:   "track.flac",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   24,
	})

	// Partial update: previous values should be retained
	decoded := uint64(100)
	model.applyStatus(StatusMsg{Decoded: &decoded})

	if model.fileName != "track.flac" {
		t.Error("previous fileName value was lost")
	}

	if model.sampleRate != 48000 {
		t.Error("previous sampleRate value was lost")
	}

	if model.decoded != 100 {
		t.Error("new decoded value not applied")
	}
}

func TestStatusMsgZeroVolume(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{Volume: 75})

	// Volume should NOT be updated to 0 (0 is special case)
	model.applyStatus(StatusMsg{Volume: 0})

	if model.volume == 0 {
		t.Error("volume should not be updated to 0")
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abc", 3, "abc"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestChannelNameFunction(t *testing.T) {
	tests := []struct {
		channels int
		expected string
	}{
		{1, "Mono"},
		{2, "Stereo"},
	}

	for _, tt := range tests {
		result := channelName(tt.channels)
		if result != tt.expected {
			t.Errorf("channelName(%d) = %q, expected %q",
				tt.channels, result, tt.expected)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		samples    uint64
		sampleRate int
		expected   string
	}{
		{0, 44100, "0:00"},
		{44100, 44100, "0:01"},
		{44100 * 61, 44100, "1:01"},
		{44100 * 600, 44100, "10:00"},
		{1000, 0, "0:00"},
	}

	for _, tt := range tests {
		result := formatTime(tt.samples, tt.sampleRate)
		if result != tt.expected {
			t.Errorf("formatTime(%d, %d) = %q, expected %q",
				tt.samples, tt.sampleRate, result, tt.expected)
		}
	}
}

func TestVolumeKeysPushChanges(t *testing.T) {
	volCtrl := NewVolumeControl()
	model := NewModel(volCtrl)

	updated, _ := model.handleKey(keyMsg("down"))
	m := updated.(Model)

	if m.volume != 95 {
		t.Errorf("expected volume 95 after down key, got %d", m.volume)
	}

	select {
	case change := <-volCtrl.Changes:
		if change.Volume != 95 {
			t.Errorf("expected pushed volume 95, got %d", change.Volume)
		}
	default:
		t.Error("expected a volume change to be pushed")
	}
}

func TestMuteKeyToggles(t *testing.T) {
	volCtrl := NewVolumeControl()
	model := NewModel(volCtrl)

	updated, _ := model.handleKey(keyMsg("m"))
	m := updated.(Model)

	if !m.muted {
		t.Error("expected muted after m key")
	}

	select {
	case change := <-volCtrl.Changes:
		if !change.Muted {
			t.Error("expected pushed change to be muted")
		}
	default:
		t.Error("expected a volume change to be pushed")
	}
}
