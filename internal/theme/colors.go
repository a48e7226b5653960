package theme

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	ColorPrimary   Color = "99" // Purple - app name, titles
	ColorSecondary Color = "86" // Cyan - subtitles
)

// Conversation colors
const (
	ColorAssistant  Color = "252" // Near white - agent replies
	ColorPermission Color = "214" // Orange - waiting on a permission
	ColorThinking   Color = "245" // Gray - reasoning
	ColorTool       Color = "75"  // Blue - tool calls
	ColorUser       Color = "86"  // Cyan - user turns
)

// Connection colors
const (
	ColorConnected    Color = "2" // Green
	ColorDisconnected Color = "1" // Red
)

// UI semantic colors
const (
	ColorDimmed          Color = "238" // Dark gray - placeholders
	ColorError           Color = "196" // Bright red
	ColorHighlight       Color = "255" // White - emphasis
	ColorMuted           Color = "241" // Gray - secondary text
	ColorNormal          Color = "250" // Default text
	ColorPaletteSelected Color = "237" // Selected row background
	ColorScrollIndicator Color = "243"
	ColorSkill           Color = "141" // Purple - inserted skills
	ColorSubtle          Color = "245" // Light gray - labels
	ColorVersion         Color = "240" // Dark gray
)

// Accent colors
const (
	ColorHelpGroup Color = "141" // Purple
	ColorHintKey   Color = "226" // Yellow
	ColorSpinner   Color = "205" // Pink
)
