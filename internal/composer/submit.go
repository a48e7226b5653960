package composer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/renato0307/conduit/internal/commands"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/protocol"
)

// ProcessingStatus is shown from submit until the agent reports its own status
const ProcessingStatus = "Processing"

// Submit sends the buffer as a new turn. A recognized non-skill slash command
// runs through the resolver instead. Queued images upload first; a failed
// upload stops the submission and keeps the buffer.
func (c *Composer) Submit() {
	input := c.latest.Get()
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || c.uploading || c.opts.State.IsLoading() {
		return
	}

	if name, args, ok := commands.ParseInvocation(trimmed); ok && c.opts.Resolver != nil {
		if cmd, found := c.opts.Resolver.Lookup(name); found && !cmd.IsSkill() {
			c.runCommand(cmd, args)
			return
		}
	}

	if len(c.attachments) == 0 || c.opts.Uploader == nil {
		c.send(nil)
		return
	}

	files := slices.Clone(c.attachments)
	project := c.opts.Project.Name
	c.uploading = true
	c.changed()

	eventloop.Await(c.opts.Exec, func() ([]domain.UploadedImage, error) {
		return c.opts.Uploader.Upload(context.Background(), project, files)
	}, func(images []domain.UploadedImage, err error) {
		c.uploading = false
		if err != nil {
			logging.Logger.Warn("Image upload failed", "count", len(files), "error", err)
			c.opts.State.AppendMessage(domain.ChatMessage{
				Content:   fmt.Sprintf("Failed to upload images: %v", err),
				Kind:      domain.KindError,
				Timestamp: c.opts.Now(),
			})
			c.changed()
			return
		}
		c.send(images)
	})
}

// send pushes the user message, resolves the session and writes the envelope
func (c *Composer) send(images []domain.UploadedImage) {
	text := strings.TrimSpace(c.latest.Get())
	if text == "" {
		return
	}
	now := c.opts.Now()
	state := c.opts.State

	state.AppendMessage(domain.ChatMessage{
		Content:   text,
		Images:    images,
		Kind:      domain.KindUser,
		Timestamp: now,
	})

	sessionID := c.SubmitSessionID()
	resume := sessionID != "" && !domain.IsTemporarySessionID(sessionID)
	effectiveID := sessionID
	if !resume {
		effectiveID = domain.NewTemporarySessionID(now)
		state.SetTemporaryID(effectiveID)
		sessionID = ""
	}
	if state.CurrentSessionID() == "" {
		state.SetPendingView(&domain.PendingViewSession{SessionID: sessionID, StartedAt: now})
	}

	command := text
	if phrase := c.thinking.Phrase(); phrase != "" {
		command = text + "\n\n" + phrase
	}

	env := c.buildEnvelope(command, sessionID, resume, images)
	if err := c.opts.Sender.Send(env); err != nil {
		logging.Logger.Error("Failed to send command", "provider", c.opts.Provider, "error", err)
		state.AppendMessage(domain.ChatMessage{
			Content:   fmt.Sprintf("Failed to send message: %v", err),
			Kind:      domain.KindError,
			Timestamp: now,
		})
		c.changed()
		return
	}
	logging.Logger.Info("Command sent", "provider", c.opts.Provider, "session_id", effectiveID, "resume", resume, "images", len(images))

	c.clearInput()
	state.SetLoading(true, true)
	state.SetStatus(&domain.ClaudeStatus{CanInterrupt: true, Text: ProcessingStatus})
	if c.opts.Lifecycle != nil {
		c.opts.Lifecycle.MarkActive(effectiveID)
		c.opts.Lifecycle.MarkProcessing(effectiveID)
	}
	c.changed()
}

// SubmitSessionID picks the session a new turn targets: the current session,
// else the selected one, else the pending id the transport stored. Empty
// means a new session.
func (c *Composer) SubmitSessionID() string {
	state := c.opts.State
	if id := state.CurrentSessionID(); id != "" {
		return id
	}
	if id := state.SelectedSessionID(); id != "" {
		return id
	}
	var pending string
	c.kvGet(ports.KeyPendingSessionID, &pending)
	return pending
}

func (c *Composer) toolsSettings() domain.ToolsSettings {
	var s domain.ToolsSettings
	c.kvGet(ports.ToolsSettingsKey(string(c.opts.Provider)), &s)
	return s
}

// buildEnvelope shapes the command for the current provider
func (c *Composer) buildEnvelope(command, sessionID string, resume bool, images []domain.UploadedImage) protocol.CommandEnvelope {
	dir := c.opts.Project.WorkingDir()
	opts := protocol.CommandOptions{
		Cwd:         dir,
		Model:       c.Model(),
		ProjectPath: dir,
		Resume:      resume,
		SessionID:   sessionID,
	}

	settings := c.toolsSettings()
	mode := c.PermissionMode()

	switch c.opts.Provider {
	case domain.ProviderCursor:
		opts.SkipPermissions = settings.SkipPermissions || mode == domain.PermissionBypass
		opts.ToolsSettings = &settings
	case domain.ProviderCodex:
		if mode == domain.PermissionPlan {
			mode = domain.PermissionDefault
		}
		opts.PermissionMode = mode
	default:
		opts.Images = images
		opts.PermissionMode = mode
		opts.ToolsSettings = &settings
	}

	return protocol.CommandEnvelope{
		Command:   command,
		Options:   opts,
		SessionID: sessionID,
		Type:      protocol.CommandTypeFor(c.opts.Provider),
	}
}

// runCommand executes a catalog command off the loop and applies its outcome
func (c *Composer) runCommand(cmd domain.SlashCommand, args []string) {
	ec := ports.ExecutionContext{
		Model:       c.Model(),
		ProjectName: c.opts.Project.Name,
		ProjectPath: c.opts.Project.WorkingDir(),
		Provider:    c.opts.Provider,
		SessionID:   c.opts.State.CurrentSessionID(),
		TokenUsage:  c.opts.State.TokenBudget(),
	}
	c.clearInput()
	c.changed()

	eventloop.Await(c.opts.Exec, func() (commands.Outcome, error) {
		return c.opts.Resolver.Execute(context.Background(), cmd, args, ec)
	}, func(out commands.Outcome, err error) {
		if err != nil {
			logging.Logger.Warn("Command failed", "command", cmd.Name, "error", err)
			c.appendAssistant(fmt.Sprintf("Error executing command: %v", err))
			return
		}
		c.applyOutcome(cmd, out)
	})
}

func (c *Composer) appendAssistant(text string) {
	c.opts.State.AppendMessage(domain.ChatMessage{
		Content:   text,
		Kind:      domain.KindAssistant,
		Timestamp: c.opts.Now(),
	})
}

func (c *Composer) applyOutcome(cmd domain.SlashCommand, out commands.Outcome) {
	state := c.opts.State
	if out.ClearMessages {
		state.ClearMessages()
	}
	if out.Rewind > 0 {
		state.DropLast(out.Rewind * 2)
	}
	if out.Message != "" {
		c.appendAssistant(out.Message)
	}
	if out.OpenSettings && c.opts.OnOpenSettings != nil {
		c.opts.OnOpenSettings()
	}
	if out.Submit == "" {
		return
	}

	if !out.NeedsConfirm {
		c.submitContent(out.Submit)
		return
	}
	if c.opts.Confirmer == nil {
		c.appendAssistant("Command cancelled: it runs shell commands and no confirmation is available.")
		return
	}
	prompt := fmt.Sprintf("%s runs shell commands. Execute it?", cmd.Name)
	c.opts.Confirmer.Confirm(prompt, func(ok bool) {
		if !ok {
			c.appendAssistant("Command cancelled.")
			return
		}
		c.submitContent(out.Submit)
	})
}

// submitContent sends text returned by a custom command as a new turn
func (c *Composer) submitContent(text string) {
	c.SetInput(text, len([]rune(text)))
	c.closeMenus()
	c.send(nil)
}

// AbortTarget picks the session an abort goes to: the current session, the
// pending view's id, the transport's pending id, cursor's stored id and the
// selected session, in that order. Temporary ids are never returned.
func (c *Composer) AbortTarget() string {
	state := c.opts.State
	candidates := []string{state.CurrentSessionID()}
	if pv := state.PendingView(); pv != nil {
		candidates = append(candidates, pv.SessionID)
	}

	var pending string
	c.kvGet(ports.KeyPendingSessionID, &pending)
	candidates = append(candidates, pending)

	if c.opts.Provider == domain.ProviderCursor {
		var cursorID string
		c.kvGet(ports.KeyCursorSessionID, &cursorID)
		candidates = append(candidates, cursorID)
	}
	candidates = append(candidates, state.SelectedSessionID())

	for _, id := range candidates {
		if id != "" && !domain.IsTemporarySessionID(id) {
			return id
		}
	}
	return ""
}

// Abort asks the backend to stop the running turn. Local state only changes
// when the backend confirms.
func (c *Composer) Abort() error {
	target := c.AbortTarget()
	if target == "" {
		logging.Logger.Warn("No session to abort", "provider", c.opts.Provider)
		return domain.ErrNoAbortTarget
	}
	logging.Logger.Info("Aborting session", "session_id", target, "provider", c.opts.Provider)
	if err := c.opts.Sender.Send(protocol.NewAbortEnvelope(target, c.opts.Provider)); err != nil {
		return fmt.Errorf("failed to send abort: %w", err)
	}
	return nil
}
