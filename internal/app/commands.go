package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const seekDebounce = 350 * time.Millisecond

// SeekCommitCmd returns a command that sends SeekCommitMsg after 350ms.
func SeekCommitCmd(version int) tea.Cmd {
	return tea.Tick(seekDebounce, func(_ time.Time) tea.Msg {
		return SeekCommitMsg{Version: version}
	})
}

// WatchPlayback waits for the next controller event and converts it to a
// tea.Msg.
func (m Model) WatchPlayback() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case snap := <-sub.Changed:
			return SnapshotMsg(snap)
		case e := <-sub.Error:
			return PlaybackErrorMsg(e)
		case <-sub.Done:
			return PlaybackClosedMsg{}
		}
	}
}

// toggleCmd runs TogglePlayPause off the update loop, since a play request
// blocks until the element answers.
func (m Model) toggleCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.TogglePlayPause(ctx)
		return ToggleDoneMsg{}
	}
}
