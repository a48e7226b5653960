package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/renato0307/conduit/internal/theme"
)

// maxVisibleItems is the maximum number of palette rows shown at once
const maxVisibleItems = 6

// CommandPalette is a searchable action palette overlay.
type CommandPalette struct {
	actions       []KeyDefinition // Filtered actions
	allActions    []KeyDefinition
	Completed     bool
	filterInput   textinput.Model
	keys          KeyMap
	lastQuery     string
	Result        CommandPaletteResult
	selectedIndex int
	width         int
}

// CommandPaletteResult contains the result of the command palette interaction.
type CommandPaletteResult struct {
	Action    *KeyDefinition
	Cancelled bool
}

// NewCommandPalette creates a new command palette listing every palette action
func NewCommandPalette(keys KeyMap) *CommandPalette {
	actions := GetPaletteActions()

	ti := textinput.New()
	ti.Prompt = "Filter: "
	ti.PromptStyle = theme.FilterPromptStyle
	ti.Cursor.Style = theme.FilterCursorStyle
	ti.Placeholder = "type to filter"
	ti.PlaceholderStyle = theme.DimmedStyle
	ti.Focus()
	ti.CharLimit = 50
	ti.Width = 40

	return &CommandPalette{
		actions:     actions,
		allActions:  actions,
		filterInput: ti,
		keys:        keys,
	}
}

// Init initializes the command palette.
func (cp *CommandPalette) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (cp *CommandPalette) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cp.width = msg.Width
		return cp, nil

	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyEsc || key.Matches(msg, cp.keys.Application.ForceQuit.Binding, cp.keys.Application.CommandPalette.Binding):
			cp.Completed = true
			cp.Result.Cancelled = true
			return cp, nil

		case msg.Type == tea.KeyEnter:
			if cp.selectedIndex < len(cp.actions) {
				cp.Completed = true
				cp.Result.Action = &cp.actions[cp.selectedIndex]
			}
			return cp, nil

		case msg.Type == tea.KeyUp:
			if cp.selectedIndex > 0 {
				cp.selectedIndex--
			}
			return cp, nil

		case msg.Type == tea.KeyDown:
			if cp.selectedIndex < len(cp.actions)-1 {
				cp.selectedIndex++
			}
			return cp, nil
		}
	}

	var cmd tea.Cmd
	cp.filterInput, cmd = cp.filterInput.Update(msg)
	cp.filterActions()
	return cp, cmd
}

// View renders the command palette as a full-width bottom panel.
func (cp *CommandPalette) View() string {
	width := cp.width
	if width <= 0 {
		width = 80
	}

	var items []string
	maxHelpLen := cp.maxHelpLen()
	start, end := cp.visibleRange()
	for i := start; i < end; i++ {
		def := cp.actions[i]
		prefix := "  "
		switch {
		case i == cp.selectedIndex:
			prefix = "> "
		case i == start && start > 0:
			prefix = theme.ScrollIndicatorStyle.Render("↑ ")
		case i == end-1 && end < len(cp.actions):
			prefix = theme.ScrollIndicatorStyle.Render("↓ ")
		}
		items = append(items, prefix+
			theme.PaletteItemStyle.Render(padRight(capitalizeFirst(def.Help), maxHelpLen))+
			theme.PaletteShortcutStyle.Render("  "+cp.shortcut(def)))
	}
	if len(items) == 0 {
		items = append(items, theme.PaletteDescStyle.Render("  No matching actions"))
	}
	for len(items) < maxVisibleItems {
		items = append(items, "")
	}

	inner := theme.PaletteTitleStyle.Render("⌘ Command Palette") + "\n\n" +
		cp.filterInput.View() + "\n\n" +
		strings.Join(items, "\n")
	return theme.PaletteBorderStyle.Width(width - 2).Render(inner)
}

// shortcut returns the first key bound to def, custom bindings included
func (cp *CommandPalette) shortcut(def KeyDefinition) string {
	for _, b := range []KeyWithTip{
		cp.keys.Application.Help, cp.keys.Application.Quit, cp.keys.Application.Timestamps,
		cp.keys.Conversation.Abort, cp.keys.Conversation.Allow, cp.keys.Conversation.AllowAlways, cp.keys.Conversation.Deny,
		cp.keys.Composer.Multiline, cp.keys.Composer.Provider, cp.keys.Composer.ReloadCommands,
		cp.keys.Composer.SkillInfo, cp.keys.Composer.Thinking,
	} {
		if b.Binding.Help().Desc == def.Help {
			if keys := b.Binding.Keys(); len(keys) > 0 {
				return keys[0]
			}
		}
	}
	return def.Defaults[0]
}

// filterActions ranks actions by fuzzy match against the current input
func (cp *CommandPalette) filterActions() {
	query := strings.ToLower(cp.filterInput.Value())
	if query == cp.lastQuery {
		return
	}
	cp.lastQuery = query
	cp.selectedIndex = 0

	if query == "" {
		cp.actions = cp.allActions
		return
	}

	helps := make([]string, len(cp.allActions))
	for i, def := range cp.allActions {
		helps[i] = def.Help
	}
	matches := fuzzy.Find(query, helps)
	cp.actions = make([]KeyDefinition, 0, len(matches))
	for _, m := range matches {
		cp.actions = append(cp.actions, cp.allActions[m.Index])
	}
}

// maxHelpLen returns the maximum help text length for alignment.
func (cp *CommandPalette) maxHelpLen() int {
	maxLen := 0
	for _, def := range cp.allActions {
		maxLen = max(maxLen, len(def.Help))
	}
	return maxLen
}

// visibleRange returns the start and end indices for visible items.
func (cp *CommandPalette) visibleRange() (int, int) {
	total := len(cp.actions)
	if total <= maxVisibleItems {
		return 0, total
	}
	start := max(cp.selectedIndex-maxVisibleItems/2, 0)
	end := start + maxVisibleItems
	if end > total {
		end = total
		start = end - maxVisibleItems
	}
	return start, end
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
