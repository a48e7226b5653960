package domain

import (
	"fmt"
	"strings"
)

// Provider identifies one of the agent backends the client can talk to
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderCursor Provider = "cursor"
)

// Providers lists every supported provider, sorted by name
var Providers = []Provider{ProviderClaude, ProviderCodex, ProviderCursor}

// ParseProvider converts a user-supplied name into a Provider
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderClaude, ProviderCodex, ProviderCursor:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// PermissionMode controls how much the agent may do without asking
type PermissionMode string

const (
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionBypass      PermissionMode = "bypassPermissions"
	PermissionDefault     PermissionMode = "default"
	PermissionPlan        PermissionMode = "plan"
)

// PermissionModes returns the cycle order of permission modes for a provider.
// Codex has no plan mode.
func PermissionModes(p Provider) []PermissionMode {
	if p == ProviderCodex {
		return []PermissionMode{PermissionDefault, PermissionAcceptEdits, PermissionBypass}
	}
	return []PermissionMode{PermissionDefault, PermissionAcceptEdits, PermissionBypass, PermissionPlan}
}

// NextPermissionMode returns the mode after current in the provider's cycle
func NextPermissionMode(p Provider, current PermissionMode) PermissionMode {
	modes := PermissionModes(p)
	for i, m := range modes {
		if m == current {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

// ToolsSettings holds the per-provider tool allow/deny lists
type ToolsSettings struct {
	AllowedTools    []string `json:"allowedTools"`
	DisallowedTools []string `json:"disallowedTools"`
	SkipPermissions bool     `json:"skipPermissions"`
}

// ThinkingMode asks the agent to spend more effort before answering
type ThinkingMode string

const (
	ThinkingNone        ThinkingMode = "none"
	ThinkingThink       ThinkingMode = "think"
	ThinkingThinkHard   ThinkingMode = "think-hard"
	ThinkingThinkHarder ThinkingMode = "think-harder"
	ThinkingUltrathink  ThinkingMode = "ultrathink"
)

// Phrase returns the instruction appended to a prompt for this mode
func (m ThinkingMode) Phrase() string {
	switch m {
	case ThinkingThink:
		return "think"
	case ThinkingThinkHard:
		return "think hard"
	case ThinkingThinkHarder:
		return "think harder"
	case ThinkingUltrathink:
		return "ultrathink"
	}
	return ""
}

// Project is the workspace a conversation runs in
type Project struct {
	FullPath string
	Name     string
	Path     string
}

// WorkingDir returns the directory handed to the agent
func (p Project) WorkingDir() string {
	if p.FullPath != "" {
		return p.FullPath
	}
	return p.Path
}
