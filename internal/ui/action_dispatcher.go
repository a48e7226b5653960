package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
)

// ConversationAwareMsg is implemented by messages that only make sense in
// some conversation states. Messages without such a requirement don't need it.
type ConversationAwareMsg interface {
	Available(s conversation.State) bool
}

// Available reports whether a turn is running
func (AbortMsg) Available(s conversation.State) bool { return s.IsLoading }

// Available reports whether a tool call is waiting on the user
func (DecideMsg) Available(s conversation.State) bool { return len(s.PendingPermissions) > 0 }

// Available reports whether a tool call is left to grant
func (GrantToolMsg) Available(s conversation.State) bool {
	_, ok := grantTarget(s)
	return ok
}

// grantTarget returns the newest tool message without a recorded grant
func grantTarget(s conversation.State) (domain.ChatMessage, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if !(m.IsToolUse || m.Kind == domain.KindTool) || m.ToolID == "" || m.ToolName == "" {
			continue
		}
		if _, done := s.PermissionGrants[m.ToolID]; done {
			continue
		}
		return m, true
	}
	return domain.ChatMessage{}, false
}

// ActionDispatcher maps key definitions to UI messages.
// This keeps the command palette decoupled from specific message types.
type ActionDispatcher struct {
	state conversation.State
}

// NewActionDispatcher creates a dispatcher for the conversation as it is in state
func NewActionDispatcher(state conversation.State) *ActionDispatcher {
	return &ActionDispatcher{state: state}
}

// Dispatch returns the appropriate tea.Msg for the given key definition.
// Returns nil if the action cannot be dispatched.
func (d *ActionDispatcher) Dispatch(def KeyDefinition) tea.Msg {
	if def.Msg == nil {
		return nil
	}
	if aware, ok := def.Msg.(ConversationAwareMsg); ok && !aware.Available(d.state) {
		return nil
	}
	return def.Msg
}
