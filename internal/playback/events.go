package playback

import "errors"

// Non-fatal failure classes reported through ErrorEvent.
var (
	ErrPlayRejected        = errors.New("play rejected")
	ErrSeekNotReady        = errors.New("seek not ready")
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	ErrLoadFailed          = errors.New("load failed")
)

// Operation names used in ErrorEvent.
const (
	OpLoad     = "load"
	OpPlay     = "play"
	OpSeek     = "seek"
	OpMetadata = "metadata"
)

// ErrorEvent is emitted when a command or the duration poll fails.
// None of these are fatal to the controller.
type ErrorEvent struct {
	Operation string // e.g., "play", "seek"
	Source    string
	Err       error
}

func (e ErrorEvent) Error() string {
	if e.Err == nil {
		return e.Operation
	}
	return e.Operation + " " + e.Source + ": " + e.Err.Error()
}

func (e ErrorEvent) Unwrap() error { return e.Err }
