// Package keymap defines the player's key bindings.
package keymap

import "strings"

// Action represents a user-triggerable action.
type Action string

const (
	ActionQuit        Action = "quit"
	ActionPlayPause   Action = "play_pause"
	ActionSeekBack    Action = "seek_back"
	ActionSeekForward Action = "seek_forward"
	ActionRestart     Action = "restart"
)

// Binding maps keys to an action.
type Binding struct {
	Keys        []string
	Action      Action
	Description string
}

// Player contains the terminal player bindings, in help order.
var Player = []Binding{
	{[]string{" ", "p"}, ActionPlayPause, "play/pause"},
	{[]string{"left", "h"}, ActionSeekBack, "seek back"},
	{[]string{"right", "l"}, ActionSeekForward, "seek forward"},
	{[]string{"0", "home"}, ActionRestart, "restart"},
	{[]string{"q", "ctrl+c", "esc"}, ActionQuit, "quit"},
}

// Help renders bindings as "key description" pairs using each binding's
// first key.
func Help(bindings []Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if len(b.Keys) == 0 {
			continue
		}
		parts = append(parts, displayKey(b.Keys[0])+" "+b.Description)
	}
	return strings.Join(parts, " · ")
}

func displayKey(k string) string {
	switch k {
	case " ":
		return "space"
	case "left":
		return "←"
	case "right":
		return "→"
	}
	return k
}
