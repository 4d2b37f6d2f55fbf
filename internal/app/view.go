package app

import (
	"strings"

	"github.com/llehouerou/castdeck/internal/keymap"
	"github.com/llehouerou/castdeck/internal/ui/playerbar"
	"github.com/llehouerou/castdeck/internal/ui/render"
	"github.com/llehouerou/castdeck/internal/ui/styles"
)

var helpText = keymap.Help(keymap.Player)

// View renders the player.
func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	t := styles.T()
	width := max(m.Width, 20)

	state := playerbar.NewState(m.Snapshot, m.Title)
	if m.Seeking {
		state.Seeking = true
		state.Position = m.SeekTarget
	}

	var b strings.Builder
	b.WriteString(playerbar.Render(state, width))
	b.WriteString("\n")
	if m.Err != "" {
		b.WriteString(t.S().Error.Render(render.TruncateEllipsis(m.Err, width)))
	} else {
		b.WriteString(t.S().Subtle.Render(render.TruncateEllipsis(m.Source, width)))
	}
	b.WriteString("\n")
	b.WriteString(t.S().Muted.Render(render.TruncateEllipsis(helpText, width)))
	return b.String()
}
