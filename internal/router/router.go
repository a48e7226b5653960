// Package router folds inbound agent events into the conversation in view.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/protocol"
	"github.com/renato0307/conduit/internal/timer"
)

// StreamFlushInterval is how long deltas accumulate before reaching the message list
const StreamFlushInterval = 100 * time.Millisecond

// globalTypes bypass session scoping
var globalTypes = map[protocol.EventType]bool{
	protocol.EventProjectsUpdated:          true,
	protocol.EventSessionCreated:           true,
	protocol.EventTaskmasterProjectUpdated: true,
	protocol.EventTaskmasterTasksUpdated:   true,
}

// unscopedTypes may arrive without an id while a new session is still unnamed:
// errors of a session that failed before it got one, and permission requests
// that are backfilled once it does
var unscopedTypes = map[protocol.EventType]bool{
	protocol.EventClaudeError:             true,
	protocol.EventClaudePermissionRequest: true,
	protocol.EventCodexError:              true,
	protocol.EventCursorError:             true,
}

// lifecycleTypes end a turn; out of view they still update session bookkeeping
var lifecycleTypes = map[protocol.EventType]bool{
	protocol.EventClaudeComplete: true,
	protocol.EventClaudeError:    true,
	protocol.EventCodexComplete:  true,
	protocol.EventCodexError:     true,
	protocol.EventCursorError:    true,
	protocol.EventCursorResult:   true,
	protocol.EventSessionAborted: true,
}

type handler func(ev protocol.Event) error

// Options configures a Router
type Options struct {
	KV        ports.KVStore
	Lifecycle ports.SessionLifecycle
	// Notify receives cross-session notifications such as project list changes
	Notify    func(ev protocol.Event)
	Now       func() time.Time
	Scheduler timer.Scheduler
	State     *conversation.Holder
}

// Router classifies inbound events and applies the ones in view. It must be
// driven from the event loop that owns State.
type Router struct {
	handlers  map[protocol.EventType]handler
	kv        ports.KVStore
	lifecycle ports.SessionLifecycle
	notify    func(ev protocol.Event)
	now       func() time.Time
	state     *conversation.Holder
	stream    *streamBuffer
}

// New creates a router over opts.State
func New(opts Options) *Router {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notify == nil {
		opts.Notify = func(protocol.Event) {}
	}

	r := &Router{
		kv:        opts.KV,
		lifecycle: opts.Lifecycle,
		notify:    opts.Notify,
		now:       opts.Now,
		state:     opts.State,
	}
	r.stream = newStreamBuffer(timer.NewSlot(opts.Scheduler), opts.State, opts.Now)

	r.handlers = map[protocol.EventType]handler{
		protocol.EventProjectsUpdated:          r.handleNotification,
		protocol.EventSessionCreated:           r.handleSessionCreated,
		protocol.EventTaskmasterProjectUpdated: r.handleNotification,
		protocol.EventTaskmasterTasksUpdated:   r.handleNotification,
		protocol.EventTokenBudget:              r.handleTokenBudget,

		protocol.EventClaudeComplete:            r.handleComplete,
		protocol.EventClaudeError:               r.handleError,
		protocol.EventClaudeInteractivePrompt:   r.handleClaudeInteractivePrompt,
		protocol.EventClaudeOutput:              r.handleClaudeOutput,
		protocol.EventClaudePermissionCancelled: r.handlePermissionCancelled,
		protocol.EventClaudePermissionRequest:   r.handlePermissionRequest,
		protocol.EventClaudeResponse:            r.handleClaudeResponse,
		protocol.EventClaudeStatus:              r.handleClaudeStatus,

		protocol.EventCursorError:   r.handleError,
		protocol.EventCursorOutput:  r.handleCursorOutput,
		protocol.EventCursorResult:  r.handleCursorResult,
		protocol.EventCursorSystem:  r.handleCursorSystem,
		protocol.EventCursorToolUse: r.handleCursorToolUse,
		protocol.EventCursorUser:    r.handleIgnored,

		protocol.EventCodexComplete: r.handleCodexComplete,
		protocol.EventCodexError:    r.handleError,
		protocol.EventCodexResponse: r.handleCodexResponse,

		protocol.EventSessionAborted: r.handleSessionAborted,
		protocol.EventSessionStatus:  r.handleSessionStatus,
	}

	return r
}

// Handles reports whether the router has a handler for t
func (r *Router) Handles(t protocol.EventType) bool {
	_, ok := r.handlers[t]
	return ok
}

// HandleFrame decodes raw and routes it. Undecodable frames are logged and dropped.
func (r *Router) HandleFrame(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		logging.Logger.Warn("Dropping malformed frame", "error", err, "size", len(raw))
		return
	}
	r.Handle(ev)
}

// Handle routes one event. A failing or panicking handler is logged; the router keeps going.
func (r *Router) Handle(ev protocol.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Logger.Error("Recovered panic while routing event", "type", ev.Type, "panic", rec)
		}
	}()

	h, ok := r.handlers[ev.Type]
	if !ok {
		logging.Logger.Warn("Dropping event of unknown type", "type", ev.Type)
		return
	}

	if !r.inView(ev) {
		r.background(ev)
		logging.Logger.Debug("Event out of view", "type", ev.Type, "session_id", ev.SessionID)
		return
	}

	if err := h(ev); err != nil {
		logging.Logger.Warn("Failed to handle event", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

// inView applies the session scoping rules
func (r *Router) inView(ev protocol.Event) bool {
	if globalTypes[ev.Type] {
		return true
	}

	active := r.state.ActiveViewSessionID()

	if id, ok := systemInitSessionID(ev); ok && id != "" {
		if active == "" || id == active {
			return true
		}
	}

	if ev.SessionID == "" {
		if active != "" {
			return true
		}
		pv := r.state.PendingView()
		return pv != nil && pv.SessionID == "" && unscopedTypes[ev.Type]
	}

	return active != "" && ev.SessionID == active
}

// systemInitSessionID returns the session announced by a provider init event
func systemInitSessionID(ev protocol.Event) (string, bool) {
	if ev.Type != protocol.EventClaudeResponse && ev.Type != protocol.EventCursorSystem {
		return "", false
	}
	var data protocol.ClaudeData
	if err := protocol.DecodeData(ev, &data); err != nil || !data.IsSystemInit() {
		return "", false
	}
	return data.SessionID, true
}

func backgroundSessionID(ev protocol.Event) string {
	if ev.ActualSessionID != "" {
		return ev.ActualSessionID
	}
	return ev.SessionID
}

// markIdle records that sessionID finished, in view or not
func (r *Router) markIdle(sessionID string) {
	if sessionID == "" || r.lifecycle == nil {
		return
	}
	r.lifecycle.MarkInactive(sessionID)
	r.lifecycle.MarkNotProcessing(sessionID)
}

// eventSessionID is the session an in-view event belongs to
func (r *Router) eventSessionID(ev protocol.Event) string {
	if id := backgroundSessionID(ev); id != "" {
		return id
	}
	if id := r.state.CurrentSessionID(); id != "" {
		return id
	}
	if id := r.pendingSessionID(); id != "" {
		return id
	}
	return r.state.TemporaryID()
}

// appendMessage closes any open stream before adding m so streamed text stays in order
func (r *Router) appendMessage(m domain.ChatMessage) {
	r.stream.close()
	if m.Timestamp.IsZero() {
		m.Timestamp = r.now()
	}
	r.state.AppendMessage(m)
}

func (r *Router) appendError(text string) {
	if text == "" {
		text = "Unknown error"
	}
	r.appendMessage(domain.ChatMessage{Kind: domain.KindError, Content: "Error: " + text})
}

// endTurn clears loading state and the session's permission requests
func (r *Router) endTurn(ev protocol.Event) {
	r.stream.close()
	sessionID := r.eventSessionID(ev)
	r.state.Finish()
	r.state.ClearPermissions(sessionID)
	r.markIdle(sessionID)
}

func (r *Router) pendingSessionID() string {
	if r.kv == nil {
		return ""
	}
	var id string
	ok, err := r.kv.Get(context.Background(), ports.KeyPendingSessionID, &id)
	if err != nil {
		logging.Logger.Warn("Failed to read pending session id", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func (r *Router) setPendingSessionID(id string) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Set(context.Background(), ports.KeyPendingSessionID, id); err != nil {
		logging.Logger.Warn("Failed to persist pending session id", "session_id", id, "error", err)
	}
}

func (r *Router) setCursorSessionID(id string) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Set(context.Background(), ports.KeyCursorSessionID, id); err != nil {
		logging.Logger.Warn("Failed to persist cursor session id", "session_id", id, "error", err)
	}
}

func (r *Router) clearPendingSessionID() {
	if r.kv == nil {
		return
	}
	if err := r.kv.Remove(context.Background(), ports.KeyPendingSessionID); err != nil {
		logging.Logger.Warn("Failed to clear pending session id", "error", err)
	}
}

func (r *Router) handleIgnored(protocol.Event) error {
	return nil
}

func (r *Router) handleNotification(ev protocol.Event) error {
	r.notify(ev)
	return nil
}

func (r *Router) handleTokenBudget(ev protocol.Event) error {
	r.state.SetTokenBudget(domain.TokenBudget(ev.Data))
	return nil
}

// detectFork navigates when an in-view init announces a different session than the one held
func (r *Router) detectFork(announced string) {
	current := r.state.CurrentSessionID()
	if announced == "" || current == "" || announced == current {
		return
	}
	logging.Logger.Info("Backend switched session", "from", current, "to", announced)
	if r.lifecycle != nil {
		r.lifecycle.NavigateTo(announced)
	}
}

func compactJSON(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	return s
}

func errorf(ev protocol.Event, format string, args ...any) error {
	return fmt.Errorf("%s: %s", ev.Type, fmt.Sprintf(format, args...))
}
