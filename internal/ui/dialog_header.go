package ui

import (
	"fmt"

	"github.com/renato0307/conduit/internal/theme"
	"github.com/renato0307/conduit/version"
)

// renderHeader creates the header used by every dialog.
// It displays the app name with optional version info (in dev mode) and tagline.
func renderHeader(devMode bool, subtitle string) string {
	appNameLine := theme.AppNameStyle.Render("Conduit")
	if devMode {
		commit := version.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		appNameLine += theme.VersionStyle.Render(fmt.Sprintf(" %s | %s | %s | %s",
			version.Version, commit, version.Date, version.GoVersion))
	}

	result := appNameLine + "\n" + theme.TaglineStyle.Render(version.Tagline)
	if subtitle != "" {
		result += "\n\n" + theme.SubtitleStyle.Render(subtitle)
	}
	return result + "\n"
}
