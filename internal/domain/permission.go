package domain

import (
	"encoding/json"
	"time"
)

// PendingPermissionRequest is a tool call waiting for the user's allow/deny
type PendingPermissionRequest struct {
	Context    json.RawMessage
	Input      json.RawMessage
	ReceivedAt time.Time
	RequestID  string
	SessionID  string
	ToolName   string
}

// PermissionDecision is the user's answer to one or more permission requests
type PermissionDecision struct {
	Allow         bool
	Message       string
	RememberEntry string
	UpdatedInput  json.RawMessage
}

// GrantState is the local outcome of persisting an allow rule
type GrantState string

const (
	GrantError   GrantState = "error"
	GrantGranted GrantState = "granted"
)

// PermissionGrant records a local allow-rule update for a tool result
type PermissionGrant struct {
	Entry string
	Err   error
	State GrantState
}
