package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/castdeck/internal/keymap"
)

var keys = keymap.NewResolver(keymap.Player)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		m.ctrl.Detach()
		m.Quitting = true
		return m, tea.Quit
	case keymap.ActionPlayPause:
		m.Err = ""
		return m, m.toggleCmd()
	case keymap.ActionSeekBack:
		return m.seekBy(-m.SeekStep)
	case keymap.ActionSeekForward:
		return m.seekBy(m.SeekStep)
	case keymap.ActionRestart:
		m.SeekVersion++
		m.Seeking = false
		m.ctrl.CommitSeek(0)
		m.Snapshot = m.ctrl.Snapshot()
		return m, nil
	}
	return m, nil
}

// seekBy moves the previewed position and restarts the commit debounce.
func (m Model) seekBy(delta time.Duration) (tea.Model, tea.Cmd) {
	if !m.Seeking {
		m.ctrl.BeginSeek()
		m.Seeking = true
		m.SeekTarget = m.ctrl.Snapshot().CurrentTime
	}
	m.ctrl.PreviewSeek(m.SeekTarget + delta)
	m.Snapshot = m.ctrl.Snapshot()
	m.SeekTarget = m.Snapshot.CurrentTime
	m.SeekVersion++
	return m, SeekCommitCmd(m.SeekVersion)
}

// handleSeekCommit commits the gesture if no newer key press superseded it.
func (m Model) handleSeekCommit(msg SeekCommitMsg) (tea.Model, tea.Cmd) {
	if msg.Version != m.SeekVersion || !m.Seeking {
		return m, nil
	}
	m.ctrl.CommitSeek(m.SeekTarget)
	m.Seeking = false
	m.Snapshot = m.ctrl.Snapshot()
	return m, nil
}
