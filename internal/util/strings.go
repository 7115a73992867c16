// Package util provides small string helpers shared by the mailbox and the
// terminal front-ends.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks text that was cut short.
const Ellipsis = "..."

// Ellipsize keeps the first n runes of s and appends Ellipsis when anything
// was dropped. Unlike TruncateANSI the marker is not counted in n.
func Ellipsize(s string, n int) string {
	if n < 0 {
		n = 0
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + Ellipsis
		}
		i++
	}
	return s
}

// SingleLine folds line breaks and tabs into spaces so a value fits on one
// terminal row.
func SingleLine(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
}

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// ANSI escape codes and wide characters are accounted for, so styled text
// can be fitted to a terminal row.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(Ellipsis) {
		return Ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail in the final width
	return ansi.Truncate(s, maxWidth, Ellipsis)
}
