// Package ui holds the CLI's terminal styling.
package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Setup disables color unless out is a terminal that wants it. NO_COLOR and
// CLICOLOR=0 turn color off; CLICOLOR_FORCE=1 turns it on without a TTY.
func Setup(out io.Writer, disable bool) {
	if disable || !wantsColor(out) {
		ForceNoColor()
	}
}

func wantsColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
