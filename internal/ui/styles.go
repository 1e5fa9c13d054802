package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 71  // green
	colorWarn   = 179 // amber
	colorAlert  = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor || s == "" {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderStatus colors the status-like values the listings return: due
// statuses, equipment and workorder statuses, and priorities. Anything else
// is returned unchanged.
func RenderStatus(s string) string {
	switch s {
	case "ok", "active", "completed", "low":
		return paint(colorOK, s)
	case "due_soon", "in_shop", "in_progress", "high":
		return paint(colorWarn, s)
	case "overdue", "inactive", "emergency":
		return paint(colorAlert, s)
	}
	return s
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
