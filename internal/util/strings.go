// Package util provides text helpers shared by the console presenter, the
// TUI and the CLI.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateANSI truncates s to maxWidth visual columns, adding "..." if
// truncated. Escape sequences and wide characters are accounted for.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward the final width
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// Preview collapses s onto one line and truncates it to maxWidth columns.
// A non-positive maxWidth yields the empty string.
func Preview(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return TruncateANSI(strings.Join(strings.Fields(s), " "), maxWidth)
}

// Wrap word-wraps s at width columns; width <= 0 returns s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wordwrap(s, width, "")
}

// Indent prefixes every non-empty line of s.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
