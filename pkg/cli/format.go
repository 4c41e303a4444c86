// Package cli provides shared formatting helpers for the popctl tools.
package cli

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// colorEnabled is false when NO_COLOR is set (per no-color.org) or stdout is
// not a terminal.
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// SetColor forces ANSI colours on or off.
func SetColor(on bool) {
	colorEnabled = on
}

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green.
func Green(s string) string { return paint("\033[32m", s) }

// Yellow wraps s in ANSI yellow.
func Yellow(s string) string { return paint("\033[33m", s) }

// Red wraps s in ANSI red.
func Red(s string) string { return paint("\033[31m", s) }

// Bold wraps s in ANSI bold.
func Bold(s string) string { return paint("\033[1m", s) }

// Dim wraps s in ANSI dim.
func Dim(s string) string { return paint("\033[2m", s) }

// Status colours a health status word: ok green, warning yellow, critical
// red, anything else dim. The word is upper-cased.
func Status(s string) string {
	word := strings.ToUpper(s)
	switch strings.ToLower(s) {
	case "ok":
		return Green(word)
	case "warning":
		return Yellow(word)
	case "critical":
		return Red(word)
	}
	return Dim(word)
}

// DotPad pads name with dots to the given width.
// Example: DotPad("light", 20) → "light .............."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}
