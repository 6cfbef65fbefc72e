package ui

import (
	"fmt"

	"github.com/groblegark/ktasks/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorDone    = 114 // green
	colorBlocked = 203 // red
)

var noColor bool

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// RenderBlocked returns s styled as a blocking warning (red).
func RenderBlocked(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorBlocked, s)
}

// RenderStatus returns the status name in its column color.
func RenderStatus(status model.Status) string {
	if noColor {
		return string(status)
	}
	code := colorAccent
	switch status {
	case model.StatusDone:
		code = colorDone
	case model.StatusBacklog:
		code = colorMuted
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, status)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
