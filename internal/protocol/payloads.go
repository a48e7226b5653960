package protocol

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is one element of a Claude message's content array
type ContentBlock struct {
	Content   json.RawMessage `json:"content,omitempty"`
	ID        string          `json:"id,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Name      string          `json:"name,omitempty"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Type      string          `json:"type"`
}

// ClaudeMessage is the message object inside assistant/user stream entries
type ClaudeMessage struct {
	Content json.RawMessage `json:"content"`
	Role    string          `json:"role"`
}

// Blocks returns the content as blocks; a plain string becomes one text block
func (m ClaudeMessage) Blocks() ([]ContentBlock, error) {
	if len(m.Content) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return []ContentBlock{{Type: "text", Text: s}}, nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode message content: %w", err)
	}
	return blocks, nil
}

// Delta is the incremental text of a content_block_delta entry
type Delta struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ClaudeData is the data payload of claude-response and cursor-system events
type ClaudeData struct {
	Delta     *Delta         `json:"delta,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
	Message   *ClaudeMessage `json:"message,omitempty"`
	Model     string         `json:"model,omitempty"`
	Result    string         `json:"result,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Subtype   string         `json:"subtype,omitempty"`
	Type      string         `json:"type"`
}

// IsSystemInit reports whether the payload announces a session
func (d ClaudeData) IsSystemInit() bool {
	return d.Type == "system" && d.Subtype == "init"
}

// StatusData is the data payload of claude-status
type StatusData struct {
	CanInterrupt *bool  `json:"can_interrupt,omitempty"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status,omitempty"`
	Text         string `json:"text,omitempty"`
	TokenCount   int    `json:"token_count,omitempty"`
	Tokens       int    `json:"tokens,omitempty"`
}

// CursorResultData is the data payload of cursor-result
type CursorResultData struct {
	IsError bool   `json:"is_error,omitempty"`
	Result  string `json:"result,omitempty"`
	Subtype string `json:"subtype,omitempty"`
}

// CodexMessage is the message of an agent_message item
type CodexMessage struct {
	Content json.RawMessage `json:"content"`
	Role    string          `json:"role"`
}

// CodexData is the data payload of codex-response
type CodexData struct {
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	Command   string          `json:"command,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	ExitCode  *int            `json:"exitCode,omitempty"`
	ItemType  string          `json:"itemType,omitempty"`
	Message   *CodexMessage   `json:"message,omitempty"`
	Output    string          `json:"output,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Server    string          `json:"server,omitempty"`
	Status    string          `json:"status,omitempty"`
	Text      string          `json:"text,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Type      string          `json:"type"`
}

// DecodeData unmarshals an event's data payload into v
func DecodeData(ev Event, v any) error {
	if len(ev.Data) == 0 {
		return fmt.Errorf("%s event has no data", ev.Type)
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", ev.Type, err)
	}
	return nil
}
