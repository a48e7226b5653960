package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/conduit/internal/adapters/storage"
	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// startModel runs a client without transport and a model sized 100x30
func startModel(t *testing.T) (*Model, *client.Client) {
	t.Helper()
	c := client.New(client.Options{
		KV:      storage.NewMemoryKVStore(),
		Project: domain.Project{Name: "demo", FullPath: "/work/demo"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("client did not stop")
		}
	})

	m := NewModel(ctx, c, Options{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, c
}

// nextSnapshot pulls snapshots until cond holds
func nextSnapshot(t *testing.T, m *Model, cond func(client.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok := m.inbox.wait(m.ctx)().(snapshotMsg)
		require.True(t, ok)
		m.Update(msg)
		if cond(msg.snap) {
			return
		}
	}
	t.Fatal("snapshot never matched")
}

func TestToKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want composer.KeyEvent
		ok   bool
	}{
		{"runes", runes("ab"), composer.KeyEvent{Key: composer.KeyRunes, Runes: []rune("ab")}, true},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, composer.KeyEvent{Key: composer.KeyRunes, Runes: []rune{' '}}, true},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, composer.KeyEvent{Key: composer.KeyEnter}, true},
		{"alt enter", tea.KeyMsg{Type: tea.KeyEnter, Alt: true}, composer.KeyEvent{Key: composer.KeyEnter, Alt: true}, true},
		{"ctrl enter", tea.KeyMsg{Type: tea.KeyCtrlJ}, composer.KeyEvent{Key: composer.KeyEnter, Ctrl: true}, true},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, composer.KeyEvent{Key: composer.KeyTab, Shift: true}, true},
		{"home", tea.KeyMsg{Type: tea.KeyCtrlA}, composer.KeyEvent{Key: composer.KeyHome}, true},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, composer.KeyEvent{Key: composer.KeyEsc}, true},
		{"unmapped", tea.KeyMsg{Type: tea.KeyCtrlW}, composer.KeyEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toKeyEvent(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCycles(t *testing.T) {
	assert.Equal(t, domain.ProviderCodex, nextProvider(domain.ProviderClaude, nil))
	assert.Equal(t, domain.ProviderClaude, nextProvider(domain.ProviderCursor, nil))
	enabled := []domain.Provider{domain.ProviderClaude, domain.ProviderCursor}
	assert.Equal(t, domain.ProviderCursor, nextProvider(domain.ProviderClaude, enabled))
	assert.Equal(t, domain.ProviderClaude, nextProvider(domain.ProviderCodex, enabled))
	assert.Equal(t, domain.ThinkingThink, nextThinking(domain.ThinkingNone))
	assert.Equal(t, domain.ThinkingNone, nextThinking(domain.ThinkingUltrathink))
	assert.Equal(t, domain.ThinkingThink, nextThinking(""))
}

func TestFormatErrorForDisplay(t *testing.T) {
	assert.Equal(t, "", formatErrorForDisplay(nil, 40))
	assert.Equal(t, "Error: boom", formatErrorForDisplay(errors.New("boom"), 40))

	long := errors.New(strings.Repeat("word ", 60))
	got := formatErrorForDisplay(long, 40)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, maxErrorLines)
	assert.True(t, strings.HasPrefix(lines[0], errorPrefix))
	assert.True(t, strings.HasSuffix(got, truncationMark))
	for _, l := range lines {
		assert.LessOrEqual(t, len([]rune(l)), 40)
	}
}

func TestActionDispatcher(t *testing.T) {
	idle := NewActionDispatcher(conversation.State{})
	assert.Nil(t, idle.Dispatch(*GetKeyDefinition("abort")))
	assert.Nil(t, idle.Dispatch(*GetKeyDefinition("allow")))
	assert.Equal(t, QuitMsg{}, idle.Dispatch(*GetKeyDefinition("quit")))
	assert.Nil(t, idle.Dispatch(*GetKeyDefinition("force_quit")))

	busy := NewActionDispatcher(conversation.State{
		IsLoading:          true,
		PendingPermissions: []domain.PendingPermissionRequest{{RequestID: "r1"}},
	})
	assert.Equal(t, AbortMsg{}, busy.Dispatch(*GetKeyDefinition("abort")))
	assert.Equal(t, DecideMsg{Allow: true, Remember: true}, busy.Dispatch(*GetKeyDefinition("allow_always")))
	assert.Nil(t, busy.Dispatch(*GetKeyDefinition("grant_tool")))
	assert.Equal(t, AttachImageMsg{}, idle.Dispatch(*GetKeyDefinition("attach_image")))
}

func TestGrantTarget(t *testing.T) {
	s := conversation.State{Messages: []domain.ChatMessage{
		{Kind: domain.KindTool, ToolID: "t1", ToolName: "Bash"},
		{Kind: domain.KindAssistant, IsToolUse: true, ToolID: "t2", ToolName: "Edit"},
		{Kind: domain.KindTool, ToolName: "cursor-tool"},
		{Kind: domain.KindAssistant, Content: "done"},
	}}
	got, ok := grantTarget(s)
	require.True(t, ok)
	assert.Equal(t, "t2", got.ToolID)

	s.PermissionGrants = map[string]domain.PermissionGrant{"t2": {Entry: "Edit", State: domain.GrantGranted}}
	got, ok = grantTarget(s)
	require.True(t, ok)
	assert.Equal(t, "t1", got.ToolID)

	s.PermissionGrants["t1"] = domain.PermissionGrant{Entry: "Bash", State: domain.GrantError}
	_, ok = grantTarget(s)
	assert.False(t, ok)
	assert.Nil(t, NewActionDispatcher(s).Dispatch(*GetKeyDefinition("grant_tool")))
}

func TestRenderMessages_Grants(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Kind: domain.KindTool, ToolID: "t1", ToolName: "Bash"},
		{Kind: domain.KindTool, ToolID: "t2", ToolName: "Edit"},
	}
	out := renderMessages(msgs, map[string]domain.PermissionGrant{
		"t1": {Entry: "Bash", State: domain.GrantGranted},
		"t2": {Entry: "Edit", Err: errors.New("disk full"), State: domain.GrantError},
	}, 80, false)
	assert.Contains(t, out, "Bash is always allowed")
	assert.Contains(t, out, "could not allow Edit: disk full")
}

func TestKeyMap_CustomBindings(t *testing.T) {
	keys := NewKeyMap(config.KeyBindingsConfig{"provider": {"f2"}})
	assert.Equal(t, []string{"f2"}, keys.Composer.Provider.Binding.Keys())
	assert.Equal(t, []string{"ctrl+d"}, keys.Application.Quit.Binding.Keys())
	require.NotNil(t, keys.Composer.Provider.Tip)
	assert.Equal(t, "press f2 to switch between claude, codex and cursor", keys.Composer.Provider.Tip.String())
	assert.NoError(t, config.KeyBindingsConfig{"provider": {"f2"}}.Validate(GetValidKeyNames()))
}

func TestCommandPalette_Filter(t *testing.T) {
	cp := NewCommandPalette(NewKeyMap(nil))
	cp.Update(runes("prov"))
	require.NotEmpty(t, cp.actions)
	assert.Equal(t, "provider", cp.actions[0].Name)

	cp.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, cp.Completed)
	require.NotNil(t, cp.Result.Action)
	assert.Equal(t, CycleProviderMsg{}, cp.Result.Action.Msg)
}

func TestCommandPalette_Cancel(t *testing.T) {
	cp := NewCommandPalette(NewKeyMap(nil))
	cp.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, cp.Completed)
	assert.True(t, cp.Result.Cancelled)
}

func TestRenderMessage(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	out := renderMessage(domain.ChatMessage{Kind: domain.KindUser, Content: "hello", Timestamp: ts}, 80, true)
	assert.Contains(t, out, "you")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "15:04:05")

	tool := renderMessage(domain.ChatMessage{
		IsToolUse:  true,
		Kind:       domain.KindAssistant,
		ToolInput:  `{"command":"ls"}`,
		ToolName:   "Bash",
		ToolResult: &domain.ToolResult{Content: strings.Repeat("line\n", 10)},
	}, 80, false)
	assert.Contains(t, tool, "Bash")
	assert.Contains(t, tool, "… 4 more lines")
}

func TestRenderInput_Placeholder(t *testing.T) {
	out := renderInput(composer.View{Provider: domain.ProviderCodex})
	assert.Contains(t, out, "Message codex")
}

func TestModel_TypingReachesComposer(t *testing.T) {
	m, c := startModel(t)

	m.Update(runes("hi"))
	var text string
	require.NoError(t, c.Do(context.Background(), func(cp *composer.Composer) { text = cp.Text() }))
	assert.Equal(t, "hi", text)

	nextSnapshot(t, m, func(s client.Snapshot) bool { return s.Composer.Text == "hi" })
	assert.Contains(t, m.View(), "hi")
}

func TestModel_ProviderKey(t *testing.T) {
	m, c := startModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	var p domain.Provider
	require.NoError(t, c.Do(context.Background(), func(cp *composer.Composer) { p = cp.Provider() }))
	assert.Equal(t, domain.ProviderCodex, p)
}

func TestModel_QuitKey(t *testing.T) {
	m, _ := startModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_AbortWithoutTurnIsIgnored(t *testing.T) {
	m, _ := startModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.errorManager.HasError())
}

func TestModel_ConfirmDeclinedWithEsc(t *testing.T) {
	m, c := startModel(t)

	got := make(chan bool, 1)
	c.Post(func(*composer.Composer) {
		c.Confirm("run /deploy?", func(ok bool) { got <- ok })
	})

	msg, ok := m.waitConfirm()().(confirmMsg)
	require.True(t, ok)
	m.Update(msg)
	assert.Equal(t, stateConfirming, m.state)
	assert.Contains(t, m.View(), "Confirm")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateChat, m.state)
	select {
	case answer := <-got:
		assert.False(t, answer)
	case <-time.After(5 * time.Second):
		t.Fatal("no answer")
	}
}

func TestModel_HelpOpensAndCloses(t *testing.T) {
	m, _ := startModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, stateHelp, m.state)
	assert.Contains(t, m.View(), "stop the running turn")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateChat, m.state)
}

func TestModel_ErrorShownThenCleared(t *testing.T) {
	m, _ := startModel(t)

	m.Update(errMsg{err: errors.New("upload failed")})
	assert.Contains(t, m.View(), "Error: upload failed")

	m.Update(clearErrorMsg{seq: m.errorManager.seq})
	assert.NotContains(t, m.View(), "upload failed")
}

func TestModel_AttachImage(t *testing.T) {
	m, _ := startModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}, Alt: true})
	assert.Equal(t, stateAttaching, m.state)
	assert.Contains(t, m.View(), "Attach image")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateChat, m.state)

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	read, ok := readImagesCmd(path)().(attachmentsReadMsg)
	require.True(t, ok)
	m.Update(read)
	nextSnapshot(t, m, func(s client.Snapshot) bool { return len(s.Composer.Attachments) == 1 })
	assert.Contains(t, m.View(), "attached: shot.png")

	failed, ok := readImagesCmd(filepath.Join(t.TempDir(), "missing.png"))().(errMsg)
	require.True(t, ok)
	assert.Error(t, failed.err)
}

func TestModel_GrantTool(t *testing.T) {
	m, _ := startModel(t)
	m.snap.Conversation.Messages = []domain.ChatMessage{
		{Kind: domain.KindTool, IsToolUse: true, ToolID: "t1", ToolName: "Bash"},
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}, Alt: true})
	nextSnapshot(t, m, func(s client.Snapshot) bool {
		_, ok := s.Conversation.PermissionGrants["t1"]
		return ok
	})
	g := m.snap.Conversation.PermissionGrants["t1"]
	assert.Equal(t, domain.GrantGranted, g.State)
	assert.Equal(t, "Bash", g.Entry)
}
