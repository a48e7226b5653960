// Package conversation holds the shared state of the session in view. The
// router and the composer are its only writers; both run on the event loop.
package conversation

import (
	"maps"
	"slices"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
)

// State is a copy of the conversation at one point in time
type State struct {
	CanAbort           bool
	CurrentSessionID   string
	IsLoading          bool
	Messages           []domain.ChatMessage
	PendingPermissions []domain.PendingPermissionRequest
	PendingView        *domain.PendingViewSession
	PermissionGrants   map[string]domain.PermissionGrant
	SelectedSessionID  string
	Status             *domain.ClaudeStatus
	TemporaryID        string
	TokenBudget        domain.TokenBudget
}

// Identity returns the identity of the session in view
func (s State) Identity() domain.SessionIdentity {
	switch {
	case s.CurrentSessionID != "" && !domain.IsTemporarySessionID(s.CurrentSessionID):
		return domain.SessionIdentity{ID: s.CurrentSessionID, State: domain.IdentityDurable}
	case s.PendingView != nil && s.PendingView.SessionID != "":
		return domain.SessionIdentity{ID: s.PendingView.SessionID, State: domain.IdentityPending}
	}
	return domain.SessionIdentity{ID: s.TemporaryID, State: domain.IdentityTemporary}
}

// StreamingCount returns how many messages are still open for streaming
func (s State) StreamingCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

func (s State) clone() State {
	c := s
	c.Messages = slices.Clone(s.Messages)
	c.PendingPermissions = slices.Clone(s.PendingPermissions)
	c.PermissionGrants = maps.Clone(s.PermissionGrants)
	c.TokenBudget = slices.Clone(s.TokenBudget)
	if s.PendingView != nil {
		pv := *s.PendingView
		c.PendingView = &pv
	}
	if s.Status != nil {
		st := *s.Status
		c.Status = &st
	}
	return c
}

// Holder owns the live State. Every mutation schedules one publish of a
// snapshot to subscribers; several mutations inside one loop task coalesce.
type Holder struct {
	exec      eventloop.Executor
	listeners []func(State)
	scheduled bool
	state     State
}

// NewHolder creates an empty conversation publishing through exec
func NewHolder(exec eventloop.Executor) *Holder {
	return &Holder{
		exec:  exec,
		state: State{PermissionGrants: map[string]domain.PermissionGrant{}},
	}
}

// Subscribe registers fn to receive snapshots after changes. fn runs on the loop.
func (h *Holder) Subscribe(fn func(State)) {
	h.listeners = append(h.listeners, fn)
}

// Snapshot returns a copy of the current state
func (h *Holder) Snapshot() State {
	return h.state.clone()
}

func (h *Holder) changed() {
	if h.scheduled || len(h.listeners) == 0 {
		return
	}
	h.scheduled = true
	h.exec.Post(h.publish)
}

func (h *Holder) publish() {
	h.scheduled = false
	snap := h.state.clone()
	for _, fn := range h.listeners {
		fn(snap)
	}
}

// Messages

// AppendMessage adds m to the end of the conversation
func (h *Holder) AppendMessage(m domain.ChatMessage) {
	h.state.Messages = append(h.state.Messages, m)
	h.changed()
}

// Tail returns the last message, or nil when there are none. The pointer is
// valid until the next append; callers mutating it must call Touch.
func (h *Holder) Tail() *domain.ChatMessage {
	if len(h.state.Messages) == 0 {
		return nil
	}
	return &h.state.Messages[len(h.state.Messages)-1]
}

// StreamingTail returns the tail message if it is still open for streaming
func (h *Holder) StreamingTail() *domain.ChatMessage {
	tail := h.Tail()
	if tail == nil || !tail.IsStreaming {
		return nil
	}
	return tail
}

// FindTool returns the tool message with the given id, searching from the end
func (h *Holder) FindTool(toolID string) *domain.ChatMessage {
	for i := len(h.state.Messages) - 1; i >= 0; i-- {
		m := &h.state.Messages[i]
		if m.IsToolUse && m.ToolID == toolID {
			return m
		}
	}
	return nil
}

// Touch publishes in-place changes made through Tail or FindTool
func (h *Holder) Touch() {
	h.changed()
}

// Messages returns a copy of the message list
func (h *Holder) Messages() []domain.ChatMessage {
	return slices.Clone(h.state.Messages)
}

// ClearMessages empties the conversation
func (h *Holder) ClearMessages() {
	h.state.Messages = nil
	h.changed()
}

// DropLast removes the last n messages
func (h *Holder) DropLast(n int) {
	if n <= 0 || len(h.state.Messages) == 0 {
		return
	}
	n = min(n, len(h.state.Messages))
	h.state.Messages = h.state.Messages[:len(h.state.Messages)-n]
	h.changed()
}

// Status flags

// IsLoading reports whether a turn is running
func (h *Holder) IsLoading() bool { return h.state.IsLoading }

// SetLoading sets the loading and can-abort flags together
func (h *Holder) SetLoading(loading, canAbort bool) {
	h.state.IsLoading = loading
	h.state.CanAbort = canAbort
	h.changed()
}

// Status returns the current status or nil
func (h *Holder) Status() *domain.ClaudeStatus {
	if h.state.Status == nil {
		return nil
	}
	st := *h.state.Status
	return &st
}

// SetStatus replaces the status indicator; nil clears it
func (h *Holder) SetStatus(st *domain.ClaudeStatus) {
	h.state.Status = st
	h.changed()
}

// TokenBudget returns the last broadcast budget
func (h *Holder) TokenBudget() domain.TokenBudget { return h.state.TokenBudget }

// SetTokenBudget stores the budget as received
func (h *Holder) SetTokenBudget(b domain.TokenBudget) {
	h.state.TokenBudget = b
	h.changed()
}

// Finish clears loading, can-abort and status after a turn ends
func (h *Holder) Finish() {
	h.state.IsLoading = false
	h.state.CanAbort = false
	h.state.Status = nil
	h.changed()
}

// Session identity

// CurrentSessionID returns the id the router is tracking
func (h *Holder) CurrentSessionID() string { return h.state.CurrentSessionID }

// SetCurrentSessionID sets the id the router is tracking
func (h *Holder) SetCurrentSessionID(id string) {
	h.state.CurrentSessionID = id
	h.changed()
}

// SelectedSessionID returns the session the user picked, if any
func (h *Holder) SelectedSessionID() string { return h.state.SelectedSessionID }

// SelectSession switches the view to id and forgets any session being started.
// Messages are kept; callers showing an unrelated session clear them first.
func (h *Holder) SelectSession(id string) {
	h.state.SelectedSessionID = id
	h.state.CurrentSessionID = id
	h.state.PendingView = nil
	h.state.TemporaryID = ""
	h.changed()
}

// PendingView returns the session being started, or nil
func (h *Holder) PendingView() *domain.PendingViewSession {
	if h.state.PendingView == nil {
		return nil
	}
	pv := *h.state.PendingView
	return &pv
}

// SetPendingView sets or clears (nil) the session being started
func (h *Holder) SetPendingView(pv *domain.PendingViewSession) {
	h.state.PendingView = pv
	h.changed()
}

// TemporaryID returns the placeholder id minted for a new session
func (h *Holder) TemporaryID() string { return h.state.TemporaryID }

// SetTemporaryID records the placeholder id minted for a new session
func (h *Holder) SetTemporaryID(id string) {
	h.state.TemporaryID = id
	h.changed()
}

// ActiveViewSessionID is the displayed session, else the current session,
// else the tentative id of the session being started
func (h *Holder) ActiveViewSessionID() string {
	if h.state.SelectedSessionID != "" {
		return h.state.SelectedSessionID
	}
	if h.state.CurrentSessionID != "" {
		return h.state.CurrentSessionID
	}
	if h.state.PendingView != nil {
		return h.state.PendingView.SessionID
	}
	return ""
}

// Permissions

// PendingPermissions returns a copy of the queued requests
func (h *Holder) PendingPermissions() []domain.PendingPermissionRequest {
	return slices.Clone(h.state.PendingPermissions)
}

// EnqueuePermission queues req unless its id is already queued. It reports whether it was added.
func (h *Holder) EnqueuePermission(req domain.PendingPermissionRequest) bool {
	for _, p := range h.state.PendingPermissions {
		if p.RequestID == req.RequestID {
			return false
		}
	}
	h.state.PendingPermissions = append(h.state.PendingPermissions, req)
	h.changed()
	return true
}

// RemovePermissions drops the requests with the given ids and returns how many went away
func (h *Holder) RemovePermissions(ids ...string) int {
	before := len(h.state.PendingPermissions)
	h.state.PendingPermissions = slices.DeleteFunc(h.state.PendingPermissions, func(p domain.PendingPermissionRequest) bool {
		return slices.Contains(ids, p.RequestID)
	})
	removed := before - len(h.state.PendingPermissions)
	if removed > 0 {
		h.changed()
	}
	return removed
}

// ClearPermissions drops every request of sessionID, plus those with no session.
// An empty sessionID clears the whole queue.
func (h *Holder) ClearPermissions(sessionID string) {
	before := len(h.state.PendingPermissions)
	h.state.PendingPermissions = slices.DeleteFunc(h.state.PendingPermissions, func(p domain.PendingPermissionRequest) bool {
		return sessionID == "" || p.SessionID == "" || p.SessionID == sessionID
	})
	if len(h.state.PendingPermissions) != before {
		h.changed()
	}
}

// BackfillPermissionSession assigns sessionID to queued requests that have none
func (h *Holder) BackfillPermissionSession(sessionID string) {
	for i := range h.state.PendingPermissions {
		if h.state.PendingPermissions[i].SessionID == "" {
			h.state.PendingPermissions[i].SessionID = sessionID
		}
	}
	h.changed()
}

// SetGrant records the local outcome of a permission grant for a tool message
func (h *Holder) SetGrant(toolID string, g domain.PermissionGrant) {
	h.state.PermissionGrants[toolID] = g
	h.changed()
}

// Grant returns the recorded grant for a tool message
func (h *Holder) Grant(toolID string) (domain.PermissionGrant, bool) {
	g, ok := h.state.PermissionGrants[toolID]
	return g, ok
}
