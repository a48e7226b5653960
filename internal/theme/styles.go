package theme

import "github.com/charmbracelet/lipgloss"

// Main UI styles
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(1, 0)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)
)

// Conversation styles
var (
	AssistantStyle = lipgloss.NewStyle().
			Foreground(ColorAssistant)

	MessageErrorStyle = lipgloss.NewStyle().
				Foreground(ColorError)

	PermissionStyle = lipgloss.NewStyle().
			Foreground(ColorPermission).
			Bold(true)

	ReasoningStyle = lipgloss.NewStyle().
			Foreground(ColorThinking).
			Italic(true)

	RoleStyle = lipgloss.NewStyle().
			Bold(true)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorVersion)

	ToolStyle = lipgloss.NewStyle().
			Foreground(ColorTool)

	UserStyle = lipgloss.NewStyle().
			Foreground(ColorUser)
)

// Composer styles
var (
	CaretStyle = lipgloss.NewStyle().
			Reverse(true)

	ComposerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorMuted).
				Padding(0, 1)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	SkillStyle = lipgloss.NewStyle().
			Foreground(ColorSkill).
			Bold(true)
)

// Status bar styles
var (
	ConnectedStyle = lipgloss.NewStyle().
			Foreground(ColorConnected)

	DisconnectedStyle = lipgloss.NewStyle().
				Foreground(ColorDisconnected)

	StatusLabelStyle = lipgloss.NewStyle().
				Foreground(ColorSubtle)

	StatusValueStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight)
)

// Dialog header styles
var (
	AppNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	TaglineStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	VersionStyle = lipgloss.NewStyle().
			Foreground(ColorVersion)
)

// Help screen styles
var (
	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HelpGroupStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHelpGroup).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Width(25)
)

// Tip styles
var (
	TipKeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	TipTextStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().
	Foreground(ColorSpinner)

// Error style
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorError).
	Bold(true)

// Palette and menu styles
var (
	DimmedStyle = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	ScrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(ColorScrollIndicator)

	PaletteBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.Border{Top: "─", Bottom: "─"}).
				BorderForeground(ColorMuted).
				Padding(0, 1)

	PaletteDescSelectedStyle = lipgloss.NewStyle().
					Foreground(ColorNormal).
					Background(ColorPaletteSelected)

	PaletteDescStyle = lipgloss.NewStyle().
				Foreground(ColorSubtle)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(ColorHintKey)

	FilterCursorStyle = lipgloss.NewStyle().
				Foreground(ColorSpinner)

	PaletteTitleStyle = lipgloss.NewStyle().
				Foreground(ColorSecondary).
				Bold(true)

	PaletteItemSelectedStyle = lipgloss.NewStyle().
					Foreground(ColorHighlight).
					Background(ColorPaletteSelected).
					Bold(true)

	PaletteItemStyle = lipgloss.NewStyle().
				Foreground(ColorNormal)

	PaletteShortcutStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Bold(true)
)
