package tui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout is an interactive terminal and /dev/tty can be
// opened (Bubble Tea needs both).
func IsTTY() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return false
	}
	defer tty.Close()
	return true
}
