package ui

import (
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyDefinition defines the metadata for a configurable key binding.
// All key bindings are defined here as the single source of truth.
type KeyDefinition struct {
	Defaults        []string
	Help            string
	IsPaletteAction bool    // If true, this key appears in command palette
	Msg             tea.Msg // Prototype message for dispatch (nil if not dispatchable)
	Name            string
	TipFormat       string
}

// AllKeyDefinitions contains all configurable key bindings.
// Composer editing keys (arrows, enter, tab, backspace) are not configurable.
var AllKeyDefinitions = []KeyDefinition{
	// Application keys
	{Name: "command_palette", Defaults: []string{"ctrl+k"}, Help: "command palette", TipFormat: "press %s to open the command palette"},
	{Name: "force_quit", Defaults: []string{"ctrl+c"}, Help: "force quit"},
	{Name: "help", Defaults: []string{"f1"}, Help: "show keyboard shortcuts", IsPaletteAction: true, Msg: ShowHelpMsg{}, TipFormat: "press %s to see all shortcuts"},
	{Name: "quit", Defaults: []string{"ctrl+d"}, Help: "exit application", IsPaletteAction: true, Msg: QuitMsg{}},
	{Name: "timestamps", Defaults: []string{"ctrl+t"}, Help: "toggle timestamps", IsPaletteAction: true, Msg: ToggleTimestampsMsg{}, TipFormat: "press %s to toggle message timestamps"},

	// Conversation keys
	{Name: "abort", Defaults: []string{"esc"}, Help: "stop the running turn", IsPaletteAction: true, Msg: AbortMsg{}, TipFormat: "press %s while the agent works to stop it"},
	{Name: "allow", Defaults: []string{"ctrl+y"}, Help: "allow pending tool call", IsPaletteAction: true, Msg: DecideMsg{Allow: true}, TipFormat: "press %s to allow a tool the agent asks for"},
	{Name: "allow_always", Defaults: []string{"alt+y"}, Help: "always allow this tool", IsPaletteAction: true, Msg: DecideMsg{Allow: true, Remember: true}},
	{Name: "deny", Defaults: []string{"ctrl+n"}, Help: "deny pending tool call", IsPaletteAction: true, Msg: DecideMsg{}},
	{Name: "grant_tool", Defaults: []string{"alt+g"}, Help: "always allow the last tool used", IsPaletteAction: true, Msg: GrantToolMsg{}, TipFormat: "press %s to stop being asked about the last tool"},
	{Name: "scroll_down", Defaults: []string{"pgdown"}, Help: "scroll conversation down"},
	{Name: "scroll_up", Defaults: []string{"pgup"}, Help: "scroll conversation up"},

	// Composer keys
	{Name: "attach_image", Defaults: []string{"alt+a"}, Help: "attach an image", IsPaletteAction: true, Msg: AttachImageMsg{}, TipFormat: "press %s to send a screenshot with your message"},
	{Name: "multiline", Defaults: []string{"ctrl+o"}, Help: "toggle multiline input", IsPaletteAction: true, Msg: ToggleMultilineMsg{}, TipFormat: "press %s so enter breaks lines instead of sending"},
	{Name: "provider", Defaults: []string{"ctrl+p"}, Help: "switch provider", IsPaletteAction: true, Msg: CycleProviderMsg{}, TipFormat: "press %s to switch between claude, codex and cursor"},
	{Name: "reload_commands", Defaults: []string{"ctrl+r"}, Help: "reload commands and skills", IsPaletteAction: true, Msg: ReloadCommandsMsg{}},
	{Name: "skill_info", Defaults: []string{"alt+i"}, Help: "show skill under the caret", IsPaletteAction: true, Msg: SkillInfoMsg{}, TipFormat: "press %s on a skill name to see what it does"},
	{Name: "skill_usage", Defaults: []string{"alt+u"}, Help: "insert skill usage example", Msg: SkillUsageMsg{}},
	{Name: "thinking", Defaults: []string{"alt+t"}, Help: "cycle thinking effort", IsPaletteAction: true, Msg: CycleThinkingMsg{}, TipFormat: "press %s to ask the agent to think harder"},
}

var (
	defaultBindingsCache map[string][]string
	defaultBindingsOnce  sync.Once

	keyDefinitionsMap     map[string]KeyDefinition
	keyDefinitionsMapOnce sync.Once

	validKeyNames     []string
	validKeyNamesOnce sync.Once
)

// GetDefaultKeyBindings returns the default key bindings as a map.
// The result is cached after the first call.
func GetDefaultKeyBindings() map[string][]string {
	defaultBindingsOnce.Do(func() {
		defaultBindingsCache = make(map[string][]string, len(AllKeyDefinitions))
		for _, def := range AllKeyDefinitions {
			defaultBindingsCache[def.Name] = def.Defaults
		}
	})
	return defaultBindingsCache
}

// GetKeyDefinition returns the definition for a key by name.
// Returns nil if not found.
func GetKeyDefinition(name string) *KeyDefinition {
	keyDefinitionsMapOnce.Do(func() {
		keyDefinitionsMap = make(map[string]KeyDefinition, len(AllKeyDefinitions))
		for _, def := range AllKeyDefinitions {
			keyDefinitionsMap[def.Name] = def
		}
	})
	if def, ok := keyDefinitionsMap[name]; ok {
		return &def
	}
	return nil
}

// GetValidKeyNames returns all valid key binding names in sorted order.
// The result is cached after the first call.
func GetValidKeyNames() []string {
	validKeyNamesOnce.Do(func() {
		validKeyNames = make([]string, len(AllKeyDefinitions))
		for i, def := range AllKeyDefinitions {
			validKeyNames[i] = def.Name
		}
		sort.Strings(validKeyNames)
	})
	return validKeyNames
}

// GetPaletteActions returns key definitions that should appear in the command palette.
func GetPaletteActions() []KeyDefinition {
	var actions []KeyDefinition
	for _, def := range AllKeyDefinitions {
		if !def.IsPaletteAction {
			continue
		}
		actions = append(actions, def)
	}
	return actions
}
