package domain

import "encoding/json"

// CommandType distinguishes where a slash command comes from
type CommandType string

const (
	CommandBuiltIn CommandType = "built-in"
	CommandCustom  CommandType = "custom"
	CommandSkill   CommandType = "skill"
)

// CommandMetadata carries optional descriptive fields of a command
type CommandMetadata struct {
	AllowedTools  []string `json:"allowedTools,omitempty"`
	ArgumentHint  string   `json:"argumentHint,omitempty"`
	Compatibility string   `json:"compatibility,omitempty"`
	Usage         string   `json:"usage,omitempty"`
}

// SlashCommand is one entry of a provider's merged command catalog.
// Name includes the leading slash and is unique within the catalog.
type SlashCommand struct {
	Description string           `json:"description,omitempty"`
	Metadata    *CommandMetadata `json:"metadata,omitempty"`
	Name        string           `json:"name"`
	Namespace   string           `json:"namespace,omitempty"`
	Path        string           `json:"path,omitempty"`
	Type        CommandType      `json:"type"`
}

// IsSkill reports whether the command is a skill
func (c SlashCommand) IsSkill() bool {
	return c.Type == CommandSkill
}

// CommandResultType distinguishes built-in from custom execution results
type CommandResultType string

const (
	ResultBuiltIn CommandResultType = "builtin"
	ResultCustom  CommandResultType = "custom"
)

// CommandResult is what the execution collaborator returns
type CommandResult struct {
	Action          string            `json:"action,omitempty"`
	Content         string            `json:"content,omitempty"`
	Data            json.RawMessage   `json:"data,omitempty"`
	HasBashCommands bool              `json:"hasBashCommands,omitempty"`
	HasFileIncludes bool              `json:"hasFileIncludes,omitempty"`
	Type            CommandResultType `json:"type"`
}
