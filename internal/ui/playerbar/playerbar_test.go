package playerbar

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/llehouerou/castdeck/internal/playback"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{83*time.Second + 900*time.Millisecond, "1:23"},
		{62 * time.Minute, "62:00"},
		{-5 * time.Second, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewState(t *testing.T) {
	snap := playback.Snapshot{
		Source:      "ep.mp3",
		IsPlaying:   true,
		IsSeeking:   true,
		CurrentTime: 10 * time.Second,
		Duration:    time.Minute,
	}
	s := NewState(snap, "Pilot")

	if s.Status != playback.StatusPlaying {
		t.Errorf("Status = %v, want Playing", s.Status)
	}
	if !s.Seeking {
		t.Error("Seeking = false, want true")
	}
	if s.Title != "Pilot" || s.Position != 10*time.Second || s.Duration != time.Minute {
		t.Errorf("NewState = %+v", s)
	}
}

func TestState_Ratio(t *testing.T) {
	tests := []struct {
		name string
		s    State
		want float64
	}{
		{"unknown duration", State{Position: time.Second}, 0},
		{"half", State{Position: 30 * time.Second, Duration: time.Minute}, 0.5},
		{"past end clamps", State{Position: 2 * time.Minute, Duration: time.Minute}, 1},
		{"negative clamps", State{Position: -time.Second, Duration: time.Minute}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Ratio(); got != tt.want {
				t.Errorf("Ratio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		contains []string
	}{
		{
			name:     "playing",
			state:    State{Title: "Pilot", Status: playback.StatusPlaying, Position: 83 * time.Second, Duration: 238 * time.Second},
			contains: []string{"Pilot", playSymbol, "1:23 / 3:58"},
		},
		{
			name:     "paused with unknown duration",
			state:    State{Title: "Pilot", Status: playback.StatusPaused},
			contains: []string{pauseSymbol, "0:00 / --:--"},
		},
		{
			name:     "seeking overrides status",
			state:    State{Title: "Pilot", Status: playback.StatusPaused, Seeking: true, Duration: time.Minute},
			contains: []string{seekSymbol},
		},
		{
			name:     "untitled",
			state:    State{Status: playback.StatusDetached},
			contains: []string{"Untitled", detachSymbol},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ansi.Strip(Render(tt.state, 80))
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestRender_FitsWidth(t *testing.T) {
	s := State{
		Title:    strings.Repeat("A very long episode title ", 10),
		Status:   playback.StatusPlaying,
		Position: time.Minute,
		Duration: 10 * time.Minute,
	}

	for _, width := range []int{40, 80, 120} {
		out := Render(s, width)
		for _, line := range strings.Split(out, "\n") {
			if w := lipgloss.Width(line); w > width {
				t.Errorf("width %d: line is %d cells: %q", width, w, ansi.Strip(line))
			}
		}
		if !strings.Contains(ansi.Strip(out), "…") {
			t.Errorf("width %d: long title should be truncated", width)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		ratio  float64
		width  int
		filled int
	}{
		{0, 10, 0},
		{0.5, 10, 5},
		{1, 10, 10},
		{1.5, 10, 10},
		{-1, 10, 0},
	}

	for _, tt := range tests {
		out := ansi.Strip(ProgressBar(tt.ratio, tt.width))
		if got := strings.Count(out, filledCell); got != tt.filled {
			t.Errorf("ProgressBar(%v, %d) filled = %d, want %d", tt.ratio, tt.width, got, tt.filled)
		}
		if got := lipgloss.Width(out); got != tt.width {
			t.Errorf("ProgressBar(%v, %d) width = %d", tt.ratio, tt.width, got)
		}
	}

	if ProgressBar(0.5, 0) != "" {
		t.Error("zero width should render nothing")
	}
}
