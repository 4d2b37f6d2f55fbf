// Package playerbar renders the one-line transport bar for an episode.
package playerbar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/castdeck/internal/playback"
	"github.com/llehouerou/castdeck/internal/ui/render"
	"github.com/llehouerou/castdeck/internal/ui/styles"
)

const (
	playSymbol   = "▶"
	pauseSymbol  = "⏸"
	seekSymbol   = "⇆"
	detachSymbol = "■"
	unknownTime  = "--:--"
	separator    = "   "
	minBarWidth  = 5
)

// Height is the rendered height including the border.
const Height = 3

// State holds everything needed to render the bar.
type State struct {
	Title    string
	Status   playback.Status
	Seeking  bool
	Position time.Duration
	Duration time.Duration // 0 while unknown
}

// NewState builds a State from a controller snapshot.
func NewState(snap playback.Snapshot, title string) State {
	return State{
		Title:    title,
		Status:   snap.Status(),
		Seeking:  snap.IsSeeking,
		Position: snap.CurrentTime,
		Duration: snap.Duration,
	}
}

// Ratio is the played fraction in [0, 1]. It is 0 while the duration is
// unknown.
func (s State) Ratio() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(max(float64(s.Position)/float64(s.Duration), 0), 1)
}

// Render returns the bar for the given terminal width:
//
//	Title   ▶  ━━━━━━────────   1:23 / 3:58
func Render(s State, width int) string {
	t := styles.T()
	innerWidth := max(width-6, 0) // border and padding

	status := statusSymbol(s)
	timeStr := FormatTime(s.Position) + " / " + formatTotal(s.Duration)

	title := s.Title
	if title == "" {
		title = "Untitled"
	}

	fixed := lipgloss.Width(status) + 2 + lipgloss.Width(separator)*2 + lipgloss.Width(timeStr)
	titleMax := max(innerWidth-fixed-minBarWidth, 1)
	title = render.TruncateEllipsis(title, min(titleMax, lipgloss.Width(render.Sanitize(title))))

	barWidth := max(innerWidth-fixed-lipgloss.Width(title), minBarWidth)

	statusStyle := t.S().Muted
	if s.Status == playback.StatusPlaying || s.Seeking {
		statusStyle = t.S().Playing
	}

	var b strings.Builder
	b.WriteString(t.S().Title.Render(title))
	b.WriteString(separator)
	b.WriteString(statusStyle.Render(status))
	b.WriteString("  ")
	b.WriteString(ProgressBar(s.Ratio(), barWidth))
	b.WriteString(separator)
	b.WriteString(t.S().Muted.Render(timeStr))

	return t.S().Panel.Padding(0, 2).Width(max(width-2, 0)).Render(b.String())
}

func statusSymbol(s State) string {
	switch {
	case s.Seeking:
		return seekSymbol
	case s.Status == playback.StatusPlaying:
		return playSymbol
	case s.Status == playback.StatusPaused:
		return pauseSymbol
	default:
		return detachSymbol
	}
}

// FormatTime renders d as m:ss. Negative values render as 0:00.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatTotal(d time.Duration) string {
	if d <= 0 {
		return unknownTime
	}
	return FormatTime(d)
}
