package ui

import (
	"github.com/renato0307/conduit/internal/config"
)

// ConversationKeys defines key bindings that act on the running conversation
type ConversationKeys struct {
	Abort       KeyWithTip
	Allow       KeyWithTip
	AllowAlways KeyWithTip
	Deny        KeyWithTip
	GrantTool   KeyWithTip
	ScrollDown  KeyWithTip
	ScrollUp    KeyWithTip
}

func newConversationKeys(defaults map[string][]string, customKeys config.KeyBindingsConfig) ConversationKeys {
	return ConversationKeys{
		Abort:       buildBinding("abort", defaults, customKeys),
		Allow:       buildBinding("allow", defaults, customKeys),
		AllowAlways: buildBinding("allow_always", defaults, customKeys),
		Deny:        buildBinding("deny", defaults, customKeys),
		GrantTool:   buildBinding("grant_tool", defaults, customKeys),
		ScrollDown:  buildBinding("scroll_down", defaults, customKeys),
		ScrollUp:    buildBinding("scroll_up", defaults, customKeys),
	}
}

// ComposerKeys defines key bindings that change how the next turn is sent
type ComposerKeys struct {
	AttachImage    KeyWithTip
	Multiline      KeyWithTip
	Provider       KeyWithTip
	ReloadCommands KeyWithTip
	SkillInfo      KeyWithTip
	SkillUsage     KeyWithTip
	Thinking       KeyWithTip
}

func newComposerKeys(defaults map[string][]string, customKeys config.KeyBindingsConfig) ComposerKeys {
	return ComposerKeys{
		AttachImage:    buildBinding("attach_image", defaults, customKeys),
		Multiline:      buildBinding("multiline", defaults, customKeys),
		Provider:       buildBinding("provider", defaults, customKeys),
		ReloadCommands: buildBinding("reload_commands", defaults, customKeys),
		SkillInfo:      buildBinding("skill_info", defaults, customKeys),
		SkillUsage:     buildBinding("skill_usage", defaults, customKeys),
		Thinking:       buildBinding("thinking", defaults, customKeys),
	}
}
