package domain

import (
	"encoding/json"
	"time"
)

// MessageKind tags a ChatMessage variant
type MessageKind string

const (
	KindAssistant MessageKind = "assistant"
	KindError     MessageKind = "error"
	KindTool      MessageKind = "tool"
	KindUser      MessageKind = "user"
)

// ToolResult is the outcome of a tool call reported by the agent
type ToolResult struct {
	Content string
	IsError bool
}

// ChatMessage is one entry of the visible conversation
type ChatMessage struct {
	Content             string
	Images              []UploadedImage
	IsInteractivePrompt bool
	IsStreaming         bool
	IsThinking          bool
	IsToolUse           bool
	Kind                MessageKind
	Reasoning           string
	Timestamp           time.Time
	ToolID              string
	ToolInput           string
	ToolName            string
	ToolResult          *ToolResult
}

// TokenBudget is broadcast by the backend and passed through untouched
type TokenBudget = json.RawMessage

// ClaudeStatus says whether the agent is busy and whether it can be stopped
type ClaudeStatus struct {
	CanInterrupt bool
	Text         string
	Tokens       int
}

// Attachment is an image queued locally, uploaded at submit time
type Attachment struct {
	Data     []byte
	MimeType string
	Name     string
	Size     int64
}

// UploadedImage is what the upload endpoint returns for an accepted attachment
type UploadedImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
}
