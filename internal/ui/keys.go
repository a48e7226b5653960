package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/renato0307/conduit/internal/config"
)

// KeyMap contains all keyboard shortcuts organized by context
type KeyMap struct {
	Application  ApplicationKeys
	Composer     ComposerKeys
	Conversation ConversationKeys
}

// NewKeyMap creates a new KeyMap with all key bindings initialized.
// Pass nil for customKeys to use default bindings.
func NewKeyMap(customKeys config.KeyBindingsConfig) KeyMap {
	defaults := GetDefaultKeyBindings()
	return KeyMap{
		Application:  newApplicationKeys(defaults, customKeys),
		Composer:     newComposerKeys(defaults, customKeys),
		Conversation: newConversationKeys(defaults, customKeys),
	}
}

// ShortHelp returns a curated list of key bindings for the bottom bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Conversation.Abort.Binding,
		k.Composer.Provider.Binding,
		k.Composer.Multiline.Binding,
		k.Application.CommandPalette.Binding,
		k.Application.Help.Binding,
		k.Application.Quit.Binding,
	}
}

// Tips returns the tips of every binding that has one
func (k KeyMap) Tips() []Tip {
	var tips []Tip
	for _, b := range []KeyWithTip{
		k.Application.CommandPalette,
		k.Application.Help,
		k.Application.Timestamps,
		k.Conversation.Abort,
		k.Conversation.Allow,
		k.Conversation.GrantTool,
		k.Composer.AttachImage,
		k.Composer.Multiline,
		k.Composer.Provider,
		k.Composer.SkillInfo,
		k.Composer.Thinking,
	} {
		if b.Tip != nil {
			tips = append(tips, *b.Tip)
		}
	}
	return tips
}
