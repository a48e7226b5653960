package protocol

import (
	"encoding/json"

	"github.com/renato0307/conduit/internal/domain"
)

// Outbound envelope types
const (
	TypeAbortSession       = "abort-session"
	TypeClaudeCommand      = "claude-command"
	TypeCodexCommand       = "codex-command"
	TypeCursorCommand      = "cursor-command"
	TypePermissionResponse = "claude-permission-response"
)

// CommandTypeFor returns the command envelope type for a provider
func CommandTypeFor(p domain.Provider) string {
	switch p {
	case domain.ProviderCursor:
		return TypeCursorCommand
	case domain.ProviderCodex:
		return TypeCodexCommand
	}
	return TypeClaudeCommand
}

// CommandOptions are the per-turn settings of a command envelope
type CommandOptions struct {
	Cwd             string                 `json:"cwd"`
	Images          []domain.UploadedImage `json:"images,omitempty"`
	Model           string                 `json:"model,omitempty"`
	PermissionMode  domain.PermissionMode  `json:"permissionMode,omitempty"`
	ProjectPath     string                 `json:"projectPath"`
	Resume          bool                   `json:"resume"`
	SessionID       string                 `json:"sessionId,omitempty"`
	SkipPermissions bool                   `json:"skipPermissions,omitempty"`
	ToolsSettings   *domain.ToolsSettings  `json:"toolsSettings,omitempty"`
}

// CommandEnvelope starts or resumes a turn
type CommandEnvelope struct {
	Command   string         `json:"command"`
	Options   CommandOptions `json:"options"`
	SessionID string         `json:"sessionId,omitempty"`
	Type      string         `json:"type"`
}

// AbortEnvelope asks the server to stop a running session
type AbortEnvelope struct {
	Provider  domain.Provider `json:"provider"`
	SessionID string          `json:"sessionId"`
	Type      string          `json:"type"`
}

// NewAbortEnvelope builds an abort request
func NewAbortEnvelope(sessionID string, p domain.Provider) AbortEnvelope {
	return AbortEnvelope{Provider: p, SessionID: sessionID, Type: TypeAbortSession}
}

// PermissionResponseEnvelope carries the decision for one permission request
type PermissionResponseEnvelope struct {
	Allow         bool            `json:"allow"`
	Message       string          `json:"message,omitempty"`
	RememberEntry string          `json:"rememberEntry,omitempty"`
	RequestID     string          `json:"requestId"`
	Type          string          `json:"type"`
	UpdatedInput  json.RawMessage `json:"updatedInput,omitempty"`
}

// NewPermissionResponse builds the decision envelope for requestID
func NewPermissionResponse(requestID string, d domain.PermissionDecision) PermissionResponseEnvelope {
	return PermissionResponseEnvelope{
		Allow:         d.Allow,
		Message:       d.Message,
		RememberEntry: d.RememberEntry,
		RequestID:     requestID,
		Type:          TypePermissionResponse,
		UpdatedInput:  d.UpdatedInput,
	}
}
