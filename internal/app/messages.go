package app

import "github.com/llehouerou/castdeck/internal/playback"

// SnapshotMsg carries a published controller snapshot.
type SnapshotMsg playback.Snapshot

// PlaybackErrorMsg carries a non-fatal controller error.
type PlaybackErrorMsg playback.ErrorEvent

// PlaybackClosedMsg is sent once the controller subscription ends.
type PlaybackClosedMsg struct{}

// SeekCommitMsg is sent after the seek debounce delay.
// Only the message matching the current SeekVersion commits.
type SeekCommitMsg struct {
	Version int
}

// ToggleDoneMsg is sent once a play/pause request has been answered.
type ToggleDoneMsg struct{}
