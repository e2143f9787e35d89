package reader

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// wrapLines wraps text to width and keeps at most limit lines. A cut-off
// last line ends in an ellipsis.
func wrapLines(text string, width, limit int) []string {
	if text == "" || width <= 1 || limit <= 0 {
		return nil
	}

	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	if len(lines) > limit {
		lines = lines[:limit]
		last := []rune(lines[limit-1])
		if len(last) >= width {
			last = last[:width-1]
		}
		lines[limit-1] = string(last) + "…"
	}
	return lines
}
