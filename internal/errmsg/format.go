// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackLoad     Op = "load audio"
	OpPlaybackStart    Op = "start playback"
	OpPlaybackSeek     Op = "seek"
	OpPlaybackMetadata Op = "read audio duration"

	// Episode operations
	OpEpisodeLoad     Op = "load episode"
	OpEpisodeGenerate Op = "generate episode audio"

	// Speech synthesis
	OpSynthesize Op = "synthesize speech"
	OpAudioWrite Op = "write audio file"

	// Server
	OpServe Op = "run server"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
