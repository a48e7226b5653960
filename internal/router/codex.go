package router

import (
	"fmt"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/protocol"
)

func (r *Router) handleCodexResponse(ev protocol.Event) error {
	var data protocol.CodexData
	if err := protocol.DecodeData(ev, &data); err != nil {
		return err
	}

	switch data.Type {
	case "item":
		return r.handleCodexItem(data)
	case "turn_complete":
		r.stream.close()
		r.state.Finish()
		r.markIdle(r.eventSessionID(ev))
	case "turn_failed":
		r.appendError(codexErrorText(data))
		r.endTurn(ev)
	}
	return nil
}

func (r *Router) handleCodexItem(data protocol.CodexData) error {
	switch data.ItemType {
	case "agent_message":
		text := data.Text
		if data.Message != nil {
			text = protocol.TextOf(data.Message.Content)
		}
		if text != "" {
			r.appendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: text})
		}
	case "reasoning":
		if data.Text != "" {
			r.appendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: data.Text, IsThinking: true, Reasoning: data.Text})
		}
	case "command_execution":
		m := domain.ChatMessage{
			IsToolUse: true,
			Kind:      domain.KindTool,
			ToolInput: data.Command,
			ToolName:  "Bash",
		}
		if data.Output != "" || data.ExitCode != nil {
			m.ToolResult = &domain.ToolResult{
				Content: data.Output,
				IsError: data.ExitCode != nil && *data.ExitCode != 0,
			}
		}
		r.appendMessage(m)
	case "file_change":
		r.appendMessage(domain.ChatMessage{
			IsToolUse:  true,
			Kind:       domain.KindTool,
			ToolInput:  compactJSON(data.Changes),
			ToolName:   "FileChanges",
			ToolResult: &domain.ToolResult{Content: data.Status, IsError: data.Status == "failed"},
		})
	case "mcp_tool_call":
		m := domain.ChatMessage{
			IsToolUse: true,
			Kind:      domain.KindTool,
			ToolInput: compactJSON(data.Arguments),
			ToolName:  fmt.Sprintf("%s:%s", data.Server, data.Tool),
		}
		switch {
		case len(data.Error) > 0:
			m.ToolResult = &domain.ToolResult{Content: protocol.TextOf(data.Error), IsError: true}
		case len(data.Result) > 0:
			m.ToolResult = &domain.ToolResult{Content: protocol.TextOf(data.Result)}
		}
		r.appendMessage(m)
	case "error":
		r.appendError(codexErrorText(data))
	default:
		return fmt.Errorf("unsupported codex item type %q", data.ItemType)
	}
	return nil
}

func codexErrorText(data protocol.CodexData) string {
	if len(data.Error) > 0 {
		return protocol.TextOf(data.Error)
	}
	if data.Message != nil {
		return protocol.TextOf(data.Message.Content)
	}
	return data.Text
}

func (r *Router) handleCodexComplete(ev protocol.Event) error {
	if ev.ActualSessionID != "" && r.state.CurrentSessionID() == "" && ev.Succeeded() {
		r.promote(ev.ActualSessionID)
	}
	r.stream.close()
	r.complete(ev, ev.Succeeded())
	return nil
}
