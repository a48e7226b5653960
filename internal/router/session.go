package router

import (
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/protocol"
)

// AbortedNotice is appended when the backend confirms an abort
const AbortedNotice = "Session interrupted by user."

// background applies the bookkeeping an out-of-view event still owes its session
func (r *Router) background(ev protocol.Event) {
	switch {
	case lifecycleTypes[ev.Type]:
		r.markIdle(backgroundSessionID(ev))
	case ev.Type == protocol.EventSessionStatus:
		r.trackProcessing(ev.SessionID, ev.IsProcessing)
	}
}

func (r *Router) trackProcessing(sessionID string, processing *bool) {
	if sessionID == "" || processing == nil || r.lifecycle == nil {
		return
	}
	if *processing {
		r.lifecycle.MarkProcessing(sessionID)
	} else {
		r.lifecycle.MarkNotProcessing(sessionID)
	}
}

// handleSessionCreated moves a new session from Temporary to Pending
func (r *Router) handleSessionCreated(ev protocol.Event) error {
	if ev.SessionID == "" {
		return errorf(ev, "missing session id")
	}
	defer r.notify(ev)

	if current := r.state.CurrentSessionID(); current != "" && !domain.IsTemporarySessionID(current) {
		return nil
	}

	logging.Logger.Info("Session created", "session_id", ev.SessionID)
	r.setPendingSessionID(ev.SessionID)

	if pv := r.state.PendingView(); pv != nil && pv.SessionID == "" {
		pv.SessionID = ev.SessionID
		r.state.SetPendingView(pv)
	}
	r.state.BackfillPermissionSession(ev.SessionID)
	if r.lifecycle != nil {
		r.lifecycle.ReplaceTemporary(ev.SessionID)
	}
	return nil
}

func (r *Router) handleComplete(ev protocol.Event) error {
	r.stream.close()
	r.complete(ev, ev.Succeeded())
	return nil
}

// complete ends the turn and, on success, promotes a pending session to durable
func (r *Router) complete(ev protocol.Event, success bool) {
	if success && r.state.CurrentSessionID() == "" {
		if pending := r.pendingSessionID(); pending != "" {
			r.promote(pending)
		}
	}
	r.endTurn(ev)
}

// promote makes sessionID the durable session in view
func (r *Router) promote(sessionID string) {
	logging.Logger.Info("Session confirmed", "session_id", sessionID)
	r.state.SetCurrentSessionID(sessionID)
	r.state.SetPendingView(nil)
	r.clearPendingSessionID()
}

func (r *Router) handlePermissionRequest(ev protocol.Event) error {
	if ev.RequestID == "" {
		return errorf(ev, "missing request id")
	}

	name := ev.ToolName
	if name == "" {
		name = ev.Tool
	}
	added := r.state.EnqueuePermission(domain.PendingPermissionRequest{
		Context:    ev.Context,
		Input:      ev.Input,
		ReceivedAt: r.now(),
		RequestID:  ev.RequestID,
		SessionID:  ev.SessionID,
		ToolName:   name,
	})
	if !added {
		logging.Logger.Debug("Ignoring duplicate permission request", "request_id", ev.RequestID)
	}

	r.state.SetStatus(&domain.ClaudeStatus{CanInterrupt: true, Text: "Waiting for permission"})
	return nil
}

func (r *Router) handlePermissionCancelled(ev protocol.Event) error {
	if ev.RequestID == "" {
		return errorf(ev, "missing request id")
	}
	r.state.RemovePermissions(ev.RequestID)
	if len(r.state.PendingPermissions()) == 0 {
		r.state.SetStatus(nil)
	}
	return nil
}

func (r *Router) handleSessionAborted(ev protocol.Event) error {
	r.endTurn(ev)
	if r.state.CurrentSessionID() == "" {
		r.state.SetPendingView(nil)
	}
	r.appendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: AbortedNotice})
	return nil
}

func (r *Router) handleSessionStatus(ev protocol.Event) error {
	if ev.IsProcessing == nil {
		return errorf(ev, "missing isProcessing")
	}
	r.trackProcessing(r.eventSessionID(ev), ev.IsProcessing)
	if *ev.IsProcessing {
		r.state.SetLoading(true, true)
	} else {
		r.state.SetLoading(false, false)
		r.state.SetStatus(nil)
	}
	return nil
}
