package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/playback"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil
	case SnapshotMsg:
		m.Snapshot = playback.Snapshot(msg)
		return m, m.WatchPlayback()
	case PlaybackErrorMsg:
		m.Err = formatPlaybackError(playback.ErrorEvent(msg), m.Title)
		return m, m.WatchPlayback()
	case PlaybackClosedMsg:
		return m, nil
	case SeekCommitMsg:
		return m.handleSeekCommit(msg)
	case ToggleDoneMsg:
		m.Snapshot = m.ctrl.Snapshot()
		return m, nil
	}
	return m, nil
}

func formatPlaybackError(e playback.ErrorEvent, title string) string {
	op := errmsg.OpPlaybackLoad
	switch e.Operation {
	case playback.OpPlay:
		op = errmsg.OpPlaybackStart
	case playback.OpSeek:
		op = errmsg.OpPlaybackSeek
	case playback.OpMetadata:
		op = errmsg.OpPlaybackMetadata
	}
	return errmsg.FormatWith(op, title, e.Err)
}
