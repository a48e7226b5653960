package router

import (
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/protocol"
)

func (r *Router) handleClaudeResponse(ev protocol.Event) error {
	var data protocol.ClaudeData
	if err := protocol.DecodeData(ev, &data); err != nil {
		return err
	}

	switch {
	case data.IsSystemInit():
		r.detectFork(data.SessionID)
		return nil
	case data.Type == "content_block_delta":
		if data.Delta != nil {
			r.stream.add(data.Delta.Text, joinConcat)
		}
		return nil
	case data.Type == "content_block_stop":
		r.stream.close()
		return nil
	case data.Type == "result":
		r.stream.close()
		if data.IsError {
			r.appendError(data.Result)
		}
		return nil
	}

	if data.Message == nil {
		return nil
	}
	blocks, err := data.Message.Blocks()
	if err != nil {
		return err
	}

	if data.Message.Role == "user" || data.Type == "user" {
		r.attachToolResults(blocks)
		return nil
	}
	r.appendAssistantBlocks(blocks)
	return nil
}

func (r *Router) appendAssistantBlocks(blocks []protocol.ContentBlock) {
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text == "" {
				continue
			}
			r.appendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: b.Text})
		case "thinking":
			if b.Thinking == "" {
				continue
			}
			r.appendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: b.Thinking, IsThinking: true})
		case "tool_use":
			r.appendMessage(domain.ChatMessage{
				Kind:      domain.KindTool,
				IsToolUse: true,
				ToolID:    b.ID,
				ToolInput: compactJSON(b.Input),
				ToolName:  b.Name,
			})
		}
	}
}

func (r *Router) attachToolResults(blocks []protocol.ContentBlock) {
	for _, b := range blocks {
		if b.Type != "tool_result" {
			continue
		}
		tool := r.state.FindTool(b.ToolUseID)
		if tool == nil {
			continue
		}
		tool.ToolResult = &domain.ToolResult{Content: protocol.TextOf(b.Content), IsError: b.IsError}
		r.state.Touch()
	}
}

func (r *Router) handleClaudeOutput(ev protocol.Event) error {
	r.stream.add(protocol.TextOf(ev.Data), joinLines)
	return nil
}

func (r *Router) handleClaudeInteractivePrompt(ev protocol.Event) error {
	r.appendMessage(domain.ChatMessage{
		Content:             protocol.TextOf(ev.Data),
		IsInteractivePrompt: true,
		Kind:                domain.KindAssistant,
	})
	return nil
}

func (r *Router) handleClaudeStatus(ev protocol.Event) error {
	var data protocol.StatusData
	if err := protocol.DecodeData(ev, &data); err != nil {
		return err
	}

	text := data.Message
	if text == "" {
		text = data.Text
	}
	if text == "" {
		text = data.Status
	}
	if text == "" {
		text = "Working..."
	}
	tokens := data.Tokens
	if tokens == 0 {
		tokens = data.TokenCount
	}
	canInterrupt := true
	if data.CanInterrupt != nil {
		canInterrupt = *data.CanInterrupt
	}

	r.state.SetStatus(&domain.ClaudeStatus{CanInterrupt: canInterrupt, Text: text, Tokens: tokens})
	r.state.SetLoading(true, canInterrupt)
	return nil
}

func (r *Router) handleError(ev protocol.Event) error {
	r.appendError(ev.ErrorText())
	r.endTurn(ev)
	return nil
}
