package router

import (
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/protocol"
)

func (r *Router) handleCursorSystem(ev protocol.Event) error {
	var data protocol.ClaudeData
	if err := protocol.DecodeData(ev, &data); err != nil {
		return err
	}
	if !data.IsSystemInit() || data.SessionID == "" {
		return nil
	}

	r.setCursorSessionID(data.SessionID)
	if r.state.CurrentSessionID() == "" {
		logging.Logger.Info("Cursor session started", "session_id", data.SessionID)
		r.state.SetCurrentSessionID(data.SessionID)
		return nil
	}
	r.detectFork(data.SessionID)
	return nil
}

func (r *Router) handleCursorToolUse(ev protocol.Event) error {
	name := ev.Tool
	if name == "" {
		name = ev.ToolName
	}
	r.appendMessage(domain.ChatMessage{
		Content:   "Using tool: " + name,
		IsToolUse: true,
		Kind:      domain.KindTool,
		ToolInput: compactJSON(ev.Input),
		ToolName:  name,
	})
	return nil
}

func (r *Router) handleCursorOutput(ev protocol.Event) error {
	r.stream.add(protocol.TextOf(ev.Data), joinLines)
	return nil
}

func (r *Router) handleCursorResult(ev protocol.Event) error {
	var data protocol.CursorResultData
	if len(ev.Data) > 0 {
		if err := protocol.DecodeData(ev, &data); err != nil {
			return err
		}
	}

	if data.IsError {
		r.stream.close()
		r.appendError(data.Result)
	} else {
		r.stream.replaceTail(data.Result)
	}

	r.complete(ev, !data.IsError && ev.Succeeded())
	return nil
}
