package util

import (
	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TerminalWidth returns the column count of the terminal at fd, or fallback
// when fd is not a terminal
func TerminalWidth(fd uintptr, fallback int) int {
	width, _, err := term.GetSize(int(fd))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
