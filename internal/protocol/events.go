// Package protocol defines the JSON frames exchanged with the agent server.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType names an inbound event
type EventType string

// Cross-session notifications
const (
	EventProjectsUpdated          EventType = "projects_updated"
	EventSessionCreated           EventType = "session-created"
	EventTaskmasterProjectUpdated EventType = "taskmaster-project-updated"
	EventTaskmasterTasksUpdated   EventType = "taskmaster-tasks-updated"
	EventTokenBudget              EventType = "token-budget"
)

// Claude (provider A)
const (
	EventClaudeComplete            EventType = "claude-complete"
	EventClaudeError               EventType = "claude-error"
	EventClaudeInteractivePrompt   EventType = "claude-interactive-prompt"
	EventClaudeOutput              EventType = "claude-output"
	EventClaudePermissionCancelled EventType = "claude-permission-cancelled"
	EventClaudePermissionRequest   EventType = "claude-permission-request"
	EventClaudeResponse            EventType = "claude-response"
	EventClaudeStatus              EventType = "claude-status"
)

// Cursor (provider B)
const (
	EventCursorError   EventType = "cursor-error"
	EventCursorOutput  EventType = "cursor-output"
	EventCursorResult  EventType = "cursor-result"
	EventCursorSystem  EventType = "cursor-system"
	EventCursorToolUse EventType = "cursor-tool-use"
	EventCursorUser    EventType = "cursor-user"
)

// Codex (provider C)
const (
	EventCodexComplete EventType = "codex-complete"
	EventCodexError    EventType = "codex-error"
	EventCodexResponse EventType = "codex-response"
)

// Session lifecycle
const (
	EventSessionAborted EventType = "session-aborted"
	EventSessionStatus  EventType = "session-status"
)

// AllEventTypes is the closed set of inbound event types the router understands
var AllEventTypes = []EventType{
	EventProjectsUpdated, EventSessionCreated, EventTaskmasterProjectUpdated,
	EventTaskmasterTasksUpdated, EventTokenBudget,
	EventClaudeComplete, EventClaudeError, EventClaudeInteractivePrompt, EventClaudeOutput,
	EventClaudePermissionCancelled, EventClaudePermissionRequest, EventClaudeResponse,
	EventClaudeStatus,
	EventCursorError, EventCursorOutput, EventCursorResult, EventCursorSystem,
	EventCursorToolUse, EventCursorUser,
	EventCodexComplete, EventCodexError, EventCodexResponse,
	EventSessionAborted, EventSessionStatus,
}

// Event is a single inbound frame. Fields not used by a type stay zero.
type Event struct {
	ActualSessionID string          `json:"actualSessionId,omitempty"`
	Context         json.RawMessage `json:"context,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
	Error           json.RawMessage `json:"error,omitempty"`
	ExitCode        *int            `json:"exitCode,omitempty"`
	Input           json.RawMessage `json:"input,omitempty"`
	IsProcessing    *bool           `json:"isProcessing,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	RequestID       string          `json:"requestId,omitempty"`
	SessionID       string          `json:"sessionId,omitempty"`
	Success         *bool           `json:"success,omitempty"`
	Tool            string          `json:"tool,omitempty"`
	ToolName        string          `json:"toolName,omitempty"`
	Type            EventType       `json:"type"`
}

// Decode parses one frame
func Decode(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	return ev, nil
}

// ErrorText returns the error carried by the event, whether sent as a string
// or as an object with a message field
func (e Event) ErrorText() string {
	return textOf(e.Error)
}

// Succeeded reports whether a completion event indicates success
func (e Event) Succeeded() bool {
	if e.ExitCode != nil {
		return *e.ExitCode == 0
	}
	if e.Success != nil {
		return *e.Success
	}
	return true
}

// textOf flattens a string, {message}, {text} or block array payload into text
func textOf(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Content json.RawMessage `json:"content"`
		Message string          `json:"message"`
		Text    string          `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Message != "":
			return obj.Message
		case obj.Text != "":
			return obj.Text
		case len(obj.Content) > 0:
			return textOf(obj.Content)
		}
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return string(raw)
}

// TextOf is the exported form of textOf for payload fields outside this package
func TextOf(raw json.RawMessage) string {
	return textOf(raw)
}
