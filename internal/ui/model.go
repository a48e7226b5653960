// Package ui is the terminal chat host: it renders client snapshots and
// turns key presses into composer calls.
package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/theme"
)

type uiState int

const (
	stateChat uiState = iota
	stateAttaching
	stateCommandPalette
	stateConfirming
	stateHelp
)

// DefaultErrorClearDelay is how long an error stays on screen
const DefaultErrorClearDelay = 8 * time.Second

// Options configures the chat model
type Options struct {
	DevMode         bool
	ErrorClearDelay time.Duration
	Keys            config.KeyBindingsConfig
	// Providers limits the provider cycle; empty means all of them
	Providers       []domain.Provider
	ShowTimestamps  bool
}

// snapshotInbox keeps only the newest snapshot so a slow terminal never
// sees them out of order
type snapshotInbox struct {
	latest client.Snapshot
	mu     sync.Mutex
	signal chan struct{}
}

func (in *snapshotInbox) put(s client.Snapshot) {
	in.mu.Lock()
	in.latest = s
	in.mu.Unlock()
	select {
	case in.signal <- struct{}{}:
	default:
	}
}

func (in *snapshotInbox) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-in.signal:
			in.mu.Lock()
			defer in.mu.Unlock()
			return snapshotMsg{snap: in.latest}
		case <-ctx.Done():
			return nil
		}
	}
}

type Model struct {
	attach         *Dialog
	client         *client.Client
	commandPalette *CommandPalette
	confirm        *Dialog
	confirmAnswer  func(bool)
	confirms       chan confirmMsg
	ctx            context.Context
	devMode        bool
	errorManager   *ErrorManager
	follow         bool // Keep the transcript scrolled to the newest message
	height         int
	helpScreen     *Dialog
	inbox          *snapshotInbox
	keys           KeyMap
	providers      []domain.Provider
	showTimestamps bool
	snap           client.Snapshot
	spinner        spinner.Model
	state          uiState
	tipIndex       int
	viewport       viewport.Model
	width          int
}

// NewModel builds the chat model for c. Snapshots and confirmations from c
// flow into the program as messages until ctx ends.
func NewModel(ctx context.Context, c *client.Client, opts Options) *Model {
	delay := opts.ErrorClearDelay
	if delay <= 0 {
		delay = DefaultErrorClearDelay
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.SpinnerStyle

	m := &Model{
		client:         c,
		confirms:       make(chan confirmMsg, 4),
		ctx:            ctx,
		devMode:        opts.DevMode,
		errorManager:   NewErrorManager(delay),
		follow:         true,
		inbox:          &snapshotInbox{signal: make(chan struct{}, 1)},
		keys:           NewKeyMap(opts.Keys),
		providers:      opts.Providers,
		showTimestamps: opts.ShowTimestamps,
		spinner:        sp,
		viewport:       viewport.New(0, 0),
	}
	m.viewport.KeyMap = viewport.KeyMap{}

	c.Subscribe(m.inbox.put)
	c.OnConfirm(func(prompt string, answer func(bool)) {
		select {
		case m.confirms <- confirmMsg{answer: answer, prompt: prompt}:
		default:
			answer(false)
		}
	})
	return m
}

func (m *Model) waitConfirm() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.confirms:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.inbox.wait(m.ctx), m.waitConfirm(), m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m.forward(msg)

	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, m.inbox.wait(m.ctx)

	case confirmMsg:
		if m.confirm != nil {
			msg.answer(false)
			return m, m.waitConfirm()
		}
		m.confirm = NewDialog("Confirm", NewConfirmForm(msg.prompt), m.devMode)
		m.confirmAnswer = msg.answer
		m.state = stateConfirming
		return m, tea.Batch(m.confirm.Init(), m.waitConfirm())

	case errMsg:
		logging.Logger.Warn("Chat action failed", "error", msg.err)
		cmd := m.errorManager.SetError(msg.err)
		m.layout()
		return m, cmd

	case attachmentsReadMsg:
		files := msg.files
		return m, m.do(func(c *composer.Composer) error {
			c.AddFiles(files)
			return nil
		})

	case clearErrorMsg:
		m.errorManager.Clear(msg)
		m.layout()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.state {
	case stateAttaching:
		return m.updateAttaching(msg)
	case stateCommandPalette:
		return m.updateCommandPalette(msg)
	case stateConfirming:
		return m.updateConfirming(msg)
	case stateHelp:
		return m.updateHelp(msg)
	}
	return m.updateChat(msg)
}

// forward hands a size change to whatever overlay is open
func (m *Model) forward(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateAttaching:
		return m.updateAttaching(msg)
	case stateCommandPalette:
		return m.updateCommandPalette(msg)
	case stateConfirming:
		return m.updateConfirming(msg)
	case stateHelp:
		return m.updateHelp(msg)
	}
	return m, nil
}

func (m *Model) applySnapshot(s client.Snapshot) {
	if m.snap.Conversation.IsLoading && !s.Conversation.IsLoading {
		m.tipIndex++
	}
	m.snap = s
	m.layout()
}

// layout sizes the transcript to whatever the bottom section leaves
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	bottom := lipgloss.Height(m.renderBottom())
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-bottom-1, 1)
	m.viewport.SetContent(m.renderTranscript())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd
	case AbortMsg, AttachImageMsg, CycleProviderMsg, CycleThinkingMsg, DecideMsg, GrantToolMsg, QuitMsg,
		ReloadCommandsMsg, ShowHelpMsg, SkillInfoMsg, SkillUsageMsg, ToggleMultilineMsg, ToggleTimestampsMsg:
		return m.handleAction(msg)
	}
	return m, nil
}

// handleKey gives application bindings first claim, then the composer, then abort
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Application.ForceQuit.Binding):
		return m, tea.Quit
	case key.Matches(msg, k.Application.CommandPalette.Binding):
		m.commandPalette = NewCommandPalette(m.keys)
		m.commandPalette.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.state = stateCommandPalette
		return m, m.commandPalette.Init()
	case key.Matches(msg, k.Conversation.ScrollUp.Binding):
		m.viewport.HalfViewUp()
		m.follow = false
		return m, nil
	case key.Matches(msg, k.Conversation.ScrollDown.Binding):
		m.viewport.HalfViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil
	}

	named := []struct {
		binding key.Binding
		name    string
	}{
		{k.Application.Help.Binding, "help"},
		{k.Application.Quit.Binding, "quit"},
		{k.Application.Timestamps.Binding, "timestamps"},
		{k.Conversation.Allow.Binding, "allow"},
		{k.Conversation.AllowAlways.Binding, "allow_always"},
		{k.Conversation.Deny.Binding, "deny"},
		{k.Conversation.GrantTool.Binding, "grant_tool"},
		{k.Composer.AttachImage.Binding, "attach_image"},
		{k.Composer.Multiline.Binding, "multiline"},
		{k.Composer.Provider.Binding, "provider"},
		{k.Composer.ReloadCommands.Binding, "reload_commands"},
		{k.Composer.SkillInfo.Binding, "skill_info"},
		{k.Composer.SkillUsage.Binding, "skill_usage"},
		{k.Composer.Thinking.Binding, "thinking"},
	}
	dispatcher := NewActionDispatcher(m.snap.Conversation)
	for _, n := range named {
		if !key.Matches(msg, n.binding) {
			continue
		}
		if action := dispatcher.Dispatch(*GetKeyDefinition(n.name)); action != nil {
			return m.handleAction(action)
		}
		return m, nil
	}

	if ev, ok := toKeyEvent(msg); ok {
		var handled bool
		if err := m.client.Do(m.ctx, func(c *composer.Composer) { handled = c.HandleKey(ev) }); err != nil {
			return m, nil
		}
		if handled {
			m.follow = true
			return m, nil
		}
	}

	if key.Matches(msg, k.Conversation.Abort.Binding) {
		if action := dispatcher.Dispatch(*GetKeyDefinition("abort")); action != nil {
			return m.handleAction(action)
		}
	}
	return m, nil
}

// handleAction performs an action message from a key binding or the palette
func (m *Model) handleAction(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case QuitMsg:
		return m, tea.Quit

	case ShowHelpMsg:
		m.helpScreen = NewDialog("Help", NewHelpScreen(&m.keys), m.devMode)
		m.state = stateHelp
		initCmd := m.helpScreen.Init()
		_, sizeCmd := m.helpScreen.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, tea.Batch(initCmd, sizeCmd)

	case ToggleTimestampsMsg:
		m.showTimestamps = !m.showTimestamps
		m.layout()
		return m, nil

	case AbortMsg:
		return m, m.do(func(c *composer.Composer) error { return c.Abort() })

	case DecideMsg:
		perms := m.snap.Conversation.PendingPermissions
		if len(perms) == 0 {
			return m, nil
		}
		p := perms[0]
		decision := domain.PermissionDecision{Allow: msg.Allow}
		if msg.Remember {
			decision.RememberEntry = p.ToolName
		}
		return m, m.do(func(c *composer.Composer) error {
			return c.Decide([]string{p.RequestID}, decision)
		})

	case AttachImageMsg:
		m.attach = NewDialog("Attach", NewAttachForm(), m.devMode)
		m.state = stateAttaching
		return m, m.attach.Init()

	case GrantToolMsg:
		target, ok := grantTarget(m.snap.Conversation)
		if !ok {
			return m, nil
		}
		return m, m.do(func(c *composer.Composer) error {
			return c.GrantToolPermission(target.ToolID, target.ToolName).Err
		})

	case CycleProviderMsg:
		return m, m.do(func(c *composer.Composer) error {
			c.SetProvider(nextProvider(c.Provider(), m.providers))
			return nil
		})

	case CycleThinkingMsg:
		return m, m.do(func(c *composer.Composer) error {
			c.SetThinkingMode(nextThinking(c.View().Thinking))
			return nil
		})

	case ToggleMultilineMsg:
		return m, m.do(func(c *composer.Composer) error {
			c.SetMultiline(!c.View().Multiline)
			return nil
		})

	case ReloadCommandsMsg:
		return m, m.do(func(c *composer.Composer) error {
			c.LoadCommands(true)
			return nil
		})

	case SkillInfoMsg:
		return m, m.do(func(c *composer.Composer) error {
			if !c.OpenSkillInfo(c.Caret()) && c.Caret() > 0 {
				c.OpenSkillInfo(c.Caret() - 1)
			}
			return nil
		})

	case SkillUsageMsg:
		return m, m.do(func(c *composer.Composer) error {
			c.InsertSkillUsage()
			return nil
		})
	}
	return m, nil
}

// do runs fn on the client's loop and reports its error on screen
func (m *Model) do(fn func(*composer.Composer) error) tea.Cmd {
	var err error
	if callErr := m.client.Do(m.ctx, func(c *composer.Composer) { err = fn(c) }); callErr != nil {
		err = callErr
	}
	if err == nil {
		return nil
	}
	return func() tea.Msg { return errMsg{err: err} }
}

func (m *Model) updateCommandPalette(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := m.commandPalette.Update(msg)
	if !m.commandPalette.Completed {
		return m, cmd
	}

	result := m.commandPalette.Result
	m.state = stateChat
	m.commandPalette = nil
	if result.Cancelled || result.Action == nil {
		return m, nil
	}
	if action := NewActionDispatcher(m.snap.Conversation).Dispatch(*result.Action); action != nil {
		return m.handleAction(action)
	}
	return m, nil
}

func (m *Model) updateAttaching(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := m.attach.Update(msg)
	form, ok := m.attach.Content().(*AttachForm)
	if !ok || !form.Completed {
		return m, cmd
	}

	m.attach = nil
	m.state = stateChat
	if form.Path() == "" {
		return m, nil
	}
	return m, readImagesCmd(config.ExpandPath(form.Path()))
}

// readImagesCmd reads paths off the update loop
func readImagesCmd(paths ...string) tea.Cmd {
	return func() tea.Msg {
		files, err := composer.ReadImages(paths)
		if err != nil {
			return errMsg{err: err}
		}
		return attachmentsReadMsg{files: files}
	}
}

func (m *Model) updateConfirming(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := m.confirm.Update(msg)
	form, ok := m.confirm.Content().(*ConfirmForm)
	if !ok || !form.Completed {
		return m, cmd
	}

	answer := m.confirmAnswer
	m.confirm = nil
	m.confirmAnswer = nil
	m.state = stateChat
	answer(form.Confirmed())
	return m, nil
}

func (m *Model) updateHelp(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := m.helpScreen.Update(msg)
	if content, ok := m.helpScreen.Content().(*HelpScreen); ok && content.Completed {
		m.helpScreen = nil
		m.state = stateChat
		return m, nil
	}
	return m, cmd
}

func (m *Model) renderTranscript() string {
	msgs := m.snap.Conversation.Messages
	if len(msgs) == 0 {
		return theme.TitleStyle.Render("Conduit") + "\n" +
			theme.DimmedStyle.Render("Start a conversation below. "+m.keys.Application.Help.Binding.Help().Key+" shows every shortcut.")
	}
	return renderMessages(msgs, m.snap.Conversation.PermissionGrants, m.width, m.showTimestamps)
}

// renderBottom is everything under the transcript
func (m *Model) renderBottom() string {
	var parts []string
	if perms := renderPermissions(m.snap.Conversation.PendingPermissions, m.keys); perms != "" {
		parts = append(parts, perms)
	}
	parts = append(parts,
		renderComposer(m.snap.Composer, m.width),
		renderStatusBar(m.snap, m.spinner.View()),
	)

	// Bottom line: error takes priority over tip
	switch tips := m.keys.Tips(); {
	case m.errorManager.HasError():
		parts = append(parts, theme.ErrorStyle.Render(formatErrorForDisplay(m.errorManager.GetError(), m.width)))
	case len(tips) > 0:
		parts = append(parts, RenderTip(tips[m.tipIndex%len(tips)]))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) chatView() string {
	return m.viewport.View() + "\n" + m.renderBottom()
}

func (m *Model) View() string {
	switch m.state {
	case stateAttaching:
		if m.attach != nil {
			return compositeOverlay(m.chatView(), m.attach.View(), m.width, m.height)
		}
	case stateCommandPalette:
		if m.commandPalette != nil {
			return bottomAnchoredOverlay(m.chatView(), m.commandPalette.View(), m.width, m.height)
		}
	case stateConfirming:
		if m.confirm != nil {
			return compositeOverlay(m.chatView(), m.confirm.View(), m.width, m.height)
		}
	case stateHelp:
		if m.helpScreen != nil {
			return m.helpScreen.View()
		}
	}
	return m.chatView()
}
