package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	maxErrorLines  = 2
	errorPrefix    = "Error: "
	truncationMark = "..."
)

// formatErrorForDisplay wraps err to maxWidth and keeps at most
// maxErrorLines lines, marking the cut with "..."
func formatErrorForDisplay(err error, maxWidth int) string {
	if err == nil {
		return ""
	}
	message := strings.Join(strings.Fields(err.Error()), " ")
	if message == "" {
		return errorPrefix + "unknown error"
	}

	width := max(maxWidth, 10+len(errorPrefix))
	lines := strings.Split(ansi.Wordwrap(errorPrefix+message, width, ""), "\n")
	if len(lines) <= maxErrorLines {
		return strings.Join(lines, "\n")
	}

	lines = lines[:maxErrorLines]
	last := []rune(lines[maxErrorLines-1])
	if keep := width - len(truncationMark); len(last) > keep {
		last = last[:keep]
	}
	lines[maxErrorLines-1] = string(last) + truncationMark
	return strings.Join(lines, "\n")
}
