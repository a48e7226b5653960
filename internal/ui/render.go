package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/theme"
)

const (
	maxMenuItems  = 8
	maxToolOutput = 6
)

// renderMessages renders the transcript, one block per message. A tool
// message with a recorded grant gets the outcome under it.
func renderMessages(msgs []domain.ChatMessage, grants map[string]domain.PermissionGrant, width int, timestamps bool) string {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		block := renderMessage(m, width, timestamps)
		if g, ok := grants[m.ToolID]; ok && m.ToolID != "" {
			block += "\n" + renderGrant(g)
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

func renderGrant(g domain.PermissionGrant) string {
	if g.State == domain.GrantError {
		return theme.MessageErrorStyle.Render(fmt.Sprintf("could not allow %s: %v", g.Entry, g.Err))
	}
	return theme.DimmedStyle.Render("✓ " + g.Entry + " is always allowed")
}

func renderMessage(m domain.ChatMessage, width int, timestamps bool) string {
	wrap := lipgloss.NewStyle().Width(max(width, 20))

	var header, body string
	switch {
	case m.Kind == domain.KindUser:
		header = theme.RoleStyle.Inherit(theme.UserStyle).Render("you")
		body = theme.UserStyle.Render(m.Content)
		for _, img := range m.Images {
			body += "\n" + theme.DimmedStyle.Render("[image] "+img.Name)
		}
	case m.Kind == domain.KindError:
		header = theme.RoleStyle.Inherit(theme.MessageErrorStyle).Render("error")
		body = theme.MessageErrorStyle.Render(m.Content)
	case m.IsToolUse || m.Kind == domain.KindTool:
		header = theme.RoleStyle.Inherit(theme.ToolStyle).Render("⚙ " + m.ToolName)
		body = renderTool(m)
	case m.IsThinking:
		header = theme.ReasoningStyle.Render("thinking")
		body = theme.ReasoningStyle.Render(m.Content)
	default:
		header = theme.RoleStyle.Inherit(theme.AssistantStyle).Render("agent")
		var parts []string
		if m.Reasoning != "" {
			parts = append(parts, theme.ReasoningStyle.Render(m.Reasoning))
		}
		parts = append(parts, theme.AssistantStyle.Render(m.Content))
		body = strings.Join(parts, "\n")
		if m.IsStreaming {
			body += theme.SpinnerStyle.Render(" ▍")
		}
	}

	if timestamps && !m.Timestamp.IsZero() {
		header += " " + theme.TimestampStyle.Render(m.Timestamp.Format("15:04:05"))
	}
	return header + "\n" + wrap.Render(body)
}

func renderTool(m domain.ChatMessage) string {
	var lines []string
	if m.ToolInput != "" {
		lines = append(lines, theme.DimmedStyle.Render(truncateLines(m.ToolInput, 3)))
	}
	if r := m.ToolResult; r != nil {
		style := theme.NormalStyle
		if r.IsError {
			style = theme.MessageErrorStyle
		}
		lines = append(lines, style.Render(truncateLines(r.Content, maxToolOutput)))
	}
	if m.Content != "" && m.Kind != domain.KindTool {
		lines = append(lines, theme.AssistantStyle.Render(m.Content))
	}
	return strings.Join(lines, "\n")
}

// truncateLines keeps the first n lines of s and says how many were dropped
func truncateLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-n)
}

// renderInput draws the buffer with the caret and inserted skills highlighted
func renderInput(v composer.View) string {
	text := []rune(v.Text)
	if len(text) == 0 {
		placeholder := "Message " + string(v.Provider) + ", / for commands, @ for files"
		return theme.CaretStyle.Render(" ") + theme.HintStyle.Render(placeholder)
	}

	inSkill := make([]bool, len(text))
	for _, s := range v.SkillSpans {
		for i := s.Start; i < s.End && i < len(text); i++ {
			inSkill[i] = true
		}
	}

	var b strings.Builder
	for i, r := range text {
		ch := string(r)
		switch {
		case i == v.Caret && r == '\n':
			b.WriteString(theme.CaretStyle.Render(" ") + "\n")
		case i == v.Caret:
			b.WriteString(theme.CaretStyle.Render(ch))
		case inSkill[i]:
			b.WriteString(theme.SkillStyle.Render(ch))
		default:
			b.WriteString(ch)
		}
	}
	if v.Caret >= len(text) {
		b.WriteString(theme.CaretStyle.Render(" "))
	}
	if v.ArgumentHint != "" {
		b.WriteString(theme.HintStyle.Render(v.ArgumentHint))
	}
	return b.String()
}

// renderComposer draws the input box plus whatever menu or popup is open
func renderComposer(v composer.View, width int) string {
	var sections []string

	switch {
	case v.CommandMenuOpen:
		sections = append(sections, renderCommandMenu(v))
	case v.FileMenuOpen:
		sections = append(sections, renderList(v.Files, v.FileSelected, nil))
	case v.SkillInfo != nil:
		sections = append(sections, renderSkillInfo(v.SkillInfo))
	}

	if len(v.Attachments) > 0 {
		sections = append(sections, theme.DimmedStyle.Render("attached: "+strings.Join(v.Attachments, ", ")))
	}
	for name, msg := range v.ImageErrors {
		sections = append(sections, theme.MessageErrorStyle.Render(name+": "+msg))
	}
	if v.Uploading {
		sections = append(sections, theme.DimmedStyle.Render("uploading images…"))
	}

	box := theme.ComposerBorderStyle.Width(max(width-2, 10)).Render(renderInput(v))
	sections = append(sections, box)
	return strings.Join(sections, "\n")
}

func renderCommandMenu(v composer.View) string {
	names := make([]string, len(v.Commands))
	descs := make([]string, len(v.Commands))
	for i, c := range v.Commands {
		names[i] = c.Name
		descs[i] = c.Description
	}
	if len(names) == 0 {
		return theme.PaletteDescStyle.Render("  No matching commands")
	}
	return renderList(names, v.Selected, descs)
}

// renderList draws a scrolling menu keeping selected in view
func renderList(items []string, selected int, descs []string) string {
	start := 0
	if selected >= maxMenuItems {
		start = selected - maxMenuItems + 1
	}
	end := min(start+maxMenuItems, len(items))

	var lines []string
	for i := start; i < end; i++ {
		prefix := "  "
		nameStyle, descStyle := theme.PaletteItemStyle, theme.PaletteDescStyle
		if i == selected {
			prefix = "> "
			nameStyle, descStyle = theme.PaletteItemSelectedStyle, theme.PaletteDescSelectedStyle
		}
		line := prefix + nameStyle.Render(items[i])
		if descs != nil && descs[i] != "" {
			line += "  " + descStyle.Render(descs[i])
		}
		lines = append(lines, line)
	}
	if end < len(items) {
		lines = append(lines, theme.ScrollIndicatorStyle.Render(fmt.Sprintf("  ↓ %d more", len(items)-end)))
	}
	return strings.Join(lines, "\n")
}

func renderSkillInfo(info *composer.SkillInfo) string {
	lines := []string{theme.SkillStyle.Render(info.Name)}
	if info.Description != "" {
		lines = append(lines, theme.NormalStyle.Render(info.Description))
	}
	if len(info.AllowedTools) > 0 {
		lines = append(lines, theme.DimmedStyle.Render("tools: "+strings.Join(info.AllowedTools, ", ")))
	}
	if info.Compatibility != "" {
		lines = append(lines, theme.DimmedStyle.Render("works with: "+info.Compatibility))
	}
	if info.Usage != "" {
		lines = append(lines, theme.DimmedStyle.Render("usage: "+info.Name+" "+info.Usage))
	}
	return theme.PaletteBorderStyle.Render(strings.Join(lines, "\n"))
}

// renderPermissions lists the tool calls waiting on the user
func renderPermissions(perms []domain.PendingPermissionRequest, keys KeyMap) string {
	if len(perms) == 0 {
		return ""
	}
	var lines []string
	for _, p := range perms {
		line := theme.PermissionStyle.Render("⚠ "+p.ToolName+" wants to run")
		if len(p.Input) > 0 {
			line += " " + theme.DimmedStyle.Render(truncateLines(string(p.Input), 1))
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("%s allow  %s always  %s deny",
		theme.TipKeyStyle.Render(keys.Conversation.Allow.Binding.Help().Key),
		theme.TipKeyStyle.Render(keys.Conversation.AllowAlways.Binding.Help().Key),
		theme.TipKeyStyle.Render(keys.Conversation.Deny.Binding.Help().Key)))
	return strings.Join(lines, "\n")
}

// renderStatusBar shows connection, provider, mode and what the agent is doing
func renderStatusBar(s client.Snapshot, spin string) string {
	conn := theme.DisconnectedStyle.Render("● offline")
	if s.Connected {
		conn = theme.ConnectedStyle.Render("● online")
	}

	field := func(label, value string) string {
		return theme.StatusLabelStyle.Render(label+" ") + theme.StatusValueStyle.Render(value)
	}
	parts := []string{
		conn,
		field("provider", string(s.Composer.Provider)),
		field("mode", string(s.Composer.PermissionMode)),
	}
	if t := s.Composer.Thinking; t != "" && t != domain.ThinkingNone {
		parts = append(parts, field("thinking", string(t)))
	}
	if s.Composer.Multiline {
		parts = append(parts, field("enter", "newline"))
	}

	bar := strings.Join(parts, theme.DimmedStyle.Render("  │  "))
	if s.Conversation.IsLoading {
		status := "working"
		if st := s.Conversation.Status; st != nil && st.Text != "" {
			status = st.Text
			if st.Tokens > 0 {
				status += fmt.Sprintf(" · %d tokens", st.Tokens)
			}
		}
		bar = spin + " " + theme.SpinnerStyle.Render(status) + theme.DimmedStyle.Render("  │  ") + bar
	}
	return bar
}
