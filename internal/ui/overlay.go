package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Dim style for background when overlay is shown
var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// dimLines strips styling from background, greys it and pads it to fill the screen
func dimLines(background string, width, height int) []string {
	lines := strings.Split(background, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		dimmed := dimStyle.Render(ansi.Strip(line))
		if w := lipgloss.Width(dimmed); w < width {
			dimmed += strings.Repeat(" ", width-w)
		}
		lines[i] = dimmed
	}
	return lines
}

// compositeOverlay renders an overlay centered on top of a dimmed background.
func compositeOverlay(background, overlay string, width, height int) string {
	bgLines := dimLines(background, width, height)
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	startX := max((width-overlayWidth)/2, 0)
	startY := max((height-len(overlayLines))/2, 0)

	for i, line := range overlayLines {
		y := startY + i
		if y >= len(bgLines) {
			break
		}
		right := max(width-startX-lipgloss.Width(line), 0)
		bgLines[y] = dimStyle.Render(strings.Repeat(" ", startX)) + line + dimStyle.Render(strings.Repeat(" ", right))
	}
	return strings.Join(bgLines, "\n")
}

// bottomAnchoredOverlay renders an overlay across the bottom of a dimmed background.
func bottomAnchoredOverlay(background, overlay string, width, height int) string {
	bgLines := dimLines(background, width, height)
	overlayLines := strings.Split(overlay, "\n")

	startY := max(len(bgLines)-len(overlayLines), 0)
	for i, line := range overlayLines {
		y := startY + i
		if y >= len(bgLines) {
			break
		}
		if w := lipgloss.Width(line); w < width {
			line += strings.Repeat(" ", width-w)
		}
		bgLines[y] = line
	}
	return strings.Join(bgLines, "\n")
}
