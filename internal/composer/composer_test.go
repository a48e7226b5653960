package composer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/conduit/internal/adapters/storage"
	"github.com/renato0307/conduit/internal/commands"
	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/ports/mocks"
	"github.com/renato0307/conduit/internal/protocol"
	"github.com/renato0307/conduit/internal/router"
	"github.com/renato0307/conduit/internal/timer/timertest"
)

var (
	demo = domain.Project{Name: "demo", FullPath: "/work/demo"}
	now  = time.UnixMilli(1700000000000)
)

type recordingSender struct {
	err  error
	sent []any
}

func (s *recordingSender) Send(env any) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *recordingSender) commands() []protocol.CommandEnvelope {
	var out []protocol.CommandEnvelope
	for _, e := range s.sent {
		if env, ok := e.(protocol.CommandEnvelope); ok {
			out = append(out, env)
		}
	}
	return out
}

type stubConfirmer struct {
	answer  bool
	prompts []string
}

func (s *stubConfirmer) Confirm(prompt string, done func(bool)) {
	s.prompts = append(s.prompts, prompt)
	done(s.answer)
}

type stubFiles []string

func (s stubFiles) Files() []string { return s }

type fixture struct {
	catalog   *mocks.MockCommandCatalog
	composer  *Composer
	confirmer *stubConfirmer
	kv        *storage.MemoryKVStore
	sched     *timertest.Scheduler
	sender    *recordingSender
	sessions  *conversation.Sessions
	state     *conversation.Holder
	uploader  *mocks.MockImageUploader
}

func catalogListing() *ports.CommandListing {
	return &ports.CommandListing{
		BuiltIn: []domain.SlashCommand{
			{Name: "/help", Description: "Show help"},
			{Name: "/model", Description: "Switch the model"},
			{Name: "/memory", Description: "Edit memory files"},
			{Name: "/clear", Description: "Clear the conversation"},
		},
		Custom: []domain.SlashCommand{
			{Name: "/deploy", Description: "Deploy the app", Path: "/work/demo/.claude/commands/deploy.md"},
		},
		Skills: []domain.SlashCommand{
			{
				Name:        "/pdf",
				Description: "Work with PDF files",
				Metadata: &domain.CommandMetadata{
					AllowedTools:  []string{"Read", "Bash"},
					ArgumentHint:  "<file> [pages]",
					Compatibility: "claude",
					Usage:         "report.pdf 1-3",
				},
			},
		},
	}
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   mocks.NewMockCommandCatalog(t),
		confirmer: &stubConfirmer{},
		kv:        storage.NewMemoryKVStore(),
		sched:     timertest.New(),
		sender:    &recordingSender{},
		state:     conversation.NewHolder(eventloop.Inline{}),
		uploader:  mocks.NewMockImageUploader(t),
	}
	f.sessions = conversation.NewSessions(f.state)
	f.catalog.EXPECT().List(mock.Anything, mock.Anything).Return(catalogListing(), nil).Maybe()

	opts := Options{
		Confirmer: f.confirmer,
		Exec:      eventloop.Inline{},
		Files:     stubFiles{"src/main.go", "src/main_test.go", "README.md"},
		KV:        f.kv,
		Lifecycle: f.sessions,
		Models:    map[domain.Provider]string{domain.ProviderClaude: "sonnet", domain.ProviderCodex: "gpt-5"},
		Now:       func() time.Time { return now },
		Project:   demo,
		Provider:  domain.ProviderClaude,
		Resolver:  commands.NewResolver(f.catalog, f.kv),
		Scheduler: f.sched,
		Sender:    f.sender,
		State:     f.state,
		Uploader:  f.uploader,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	f.composer = New(opts)
	f.composer.LoadCommands(false)
	return f
}

func (f *fixture) typeText(s string) {
	for _, r := range s {
		f.composer.HandleKey(KeyEvent{Key: KeyRunes, Runes: []rune{r}})
	}
}

func names(cmds []domain.SlashCommand) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name
	}
	return out
}

func TestComposer_DraftSeededAndPersisted(t *testing.T) {
	kv := storage.NewMemoryKVStore()
	require.NoError(t, kv.Set(context.Background(), ports.DraftKey("demo"), "half written"))

	f := newFixture(t, func(o *Options) { o.KV = kv })
	assert.Equal(t, "half written", f.composer.Text())
	assert.Equal(t, len("half written"), f.composer.Caret())

	f.typeText("!")
	var draft string
	_, err := kv.Get(context.Background(), ports.DraftKey("demo"), &draft)
	require.NoError(t, err)
	assert.Equal(t, "half written!", draft)

	f.composer.SetInput("", 0)
	assert.False(t, kv.Has(ports.DraftKey("demo")), "an empty buffer removes the draft")
}

func TestComposer_SlashMenuFiltersAfterDebounce(t *testing.T) {
	f := newFixture(t)

	f.typeText("/mo")
	assert.True(t, f.composer.CommandMenuOpen())
	assert.Len(t, f.composer.FilteredCommands(), 6, "the full catalog shows until typing pauses")
	assert.Equal(t, 1, f.sched.Pending(), "one debounce timer at a time")

	f.sched.Advance(QueryDebounce)
	got := names(f.composer.FilteredCommands())
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []string{"/model", "/memory"}, got[:2])
}

func TestComposer_SlashMenuClosesOutsideToken(t *testing.T) {
	f := newFixture(t)

	f.typeText("/mo")
	f.typeText(" ")
	assert.False(t, f.composer.CommandMenuOpen())
	assert.Equal(t, 0, f.sched.Pending(), "closing the menu cancels the debounce")

	f.composer.SetInput("```\n/mo", 7)
	assert.False(t, f.composer.CommandMenuOpen(), "no menu inside a code block")

	f.composer.SetInput("see src/lib", 11)
	assert.False(t, f.composer.CommandMenuOpen())
}

func TestComposer_MenuNavigationInserts(t *testing.T) {
	f := newFixture(t)

	f.typeText("/mo")
	f.sched.Advance(QueryDebounce)
	assert.True(t, f.composer.HandleKey(KeyEvent{Key: KeyDown}))
	assert.True(t, f.composer.HandleKey(KeyEvent{Key: KeyEnter}))

	assert.Equal(t, "/memory ", f.composer.Text())
	assert.Equal(t, len("/memory"), f.composer.Caret())
	assert.False(t, f.composer.CommandMenuOpen())
	assert.Empty(t, f.sender.sent, "accepting a menu entry never submits")
}

func TestComposer_MenuEscapeCloses(t *testing.T) {
	f := newFixture(t)

	f.typeText("/")
	require.True(t, f.composer.CommandMenuOpen())
	assert.True(t, f.composer.HandleKey(KeyEvent{Key: KeyEsc}))
	assert.False(t, f.composer.CommandMenuOpen())
	assert.Equal(t, "/", f.composer.Text())
}

func TestComposer_FileMentions(t *testing.T) {
	f := newFixture(t)

	f.typeText("open @main")
	v := f.composer.View()
	require.True(t, v.FileMenuOpen)
	assert.Equal(t, []string{"src/main.go", "src/main_test.go"}, v.Files)

	f.composer.HandleKey(KeyEvent{Key: KeyDown})
	f.composer.HandleKey(KeyEvent{Key: KeyTab})

	assert.Equal(t, "open @src/main_test.go ", f.composer.Text())
	assert.False(t, f.composer.FileMenuOpen())
}

func TestComposer_SkillTokens(t *testing.T) {
	f := newFixture(t)

	f.typeText("use /pd")
	f.sched.Advance(QueryDebounce)
	require.Equal(t, "/pdf", f.composer.FilteredCommands()[0].Name)
	f.composer.HandleKey(KeyEvent{Key: KeyEnter})

	assert.Equal(t, "use /pdf ", f.composer.Text())
	assert.Equal(t, "<file> [pages]", f.composer.ArgumentHint(), "hint shows while nothing follows the name")
	assert.Equal(t, "use /pdf ", f.composer.Text(), "the hint is not part of the buffer")

	f.composer.SetInput("use /pdf then /pdf, not a/pdf or /pdfx", 0)
	spans := f.composer.SkillSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, SkillSpan{Start: 4, End: 8, Name: "/pdf"}, spans[0])
	assert.Equal(t, SkillSpan{Start: 14, End: 18, Name: "/pdf"}, spans[1])
	assert.Empty(t, f.composer.ArgumentHint(), "no hint when text follows the caret")
}

func TestComposer_SkillInfoInsertsUsage(t *testing.T) {
	f := newFixture(t)

	f.typeText("/pd")
	f.sched.Advance(QueryDebounce)
	f.composer.HandleKey(KeyEvent{Key: KeyEnter})
	f.composer.SetInput("please /pdf  now", 0)

	require.False(t, f.composer.OpenSkillInfo(0))
	require.True(t, f.composer.OpenSkillInfo(9))

	info := f.composer.View().SkillInfo
	require.NotNil(t, info)
	assert.Equal(t, "Work with PDF files", info.Description)
	assert.Equal(t, "claude", info.Compatibility)
	assert.Equal(t, []string{"Read", "Bash"}, info.AllowedTools)
	assert.Equal(t, "please /pdf  now", f.composer.Text(), "opening the info never edits the text")

	require.True(t, f.composer.InsertSkillUsage())
	assert.Equal(t, "please /pdf report.pdf 1-3 now", f.composer.Text())
	assert.Nil(t, f.composer.View().SkillInfo)
}

func TestComposer_RemovedSkillIsForgotten(t *testing.T) {
	f := newFixture(t)

	f.typeText("/pd")
	f.sched.Advance(QueryDebounce)
	f.composer.HandleKey(KeyEvent{Key: KeyEnter})
	require.Len(t, f.composer.SkillSpans(), 1)

	f.composer.SetInput("", 0)
	f.composer.SetInput("/pdf", 4)
	assert.Empty(t, f.composer.SkillSpans(), "typing the name by hand does not make a token")
}

func TestComposer_SubmitStartsNewSession(t *testing.T) {
	f := newFixture(t)

	f.typeText("hello there")
	f.composer.HandleKey(KeyEvent{Key: KeyEnter})

	envs := f.sender.commands()
	require.Len(t, envs, 1)
	env := envs[0]
	assert.Equal(t, protocol.TypeClaudeCommand, env.Type)
	assert.Equal(t, "hello there", env.Command)
	assert.Empty(t, env.SessionID)
	assert.False(t, env.Options.Resume)
	assert.Equal(t, "/work/demo", env.Options.Cwd)
	assert.Equal(t, "/work/demo", env.Options.ProjectPath)
	assert.Equal(t, "sonnet", env.Options.Model)
	assert.Equal(t, domain.PermissionDefault, env.Options.PermissionMode)
	require.NotNil(t, env.Options.ToolsSettings)

	snap := f.state.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, domain.KindUser, snap.Messages[0].Kind)
	assert.Equal(t, "hello there", snap.Messages[0].Content)
	assert.True(t, snap.IsLoading)
	assert.True(t, snap.CanAbort)
	require.NotNil(t, snap.PendingView)
	assert.Empty(t, snap.PendingView.SessionID)
	assert.Equal(t, "new-session-1700000000000", snap.TemporaryID)
	assert.True(t, f.sessions.IsProcessing("new-session-1700000000000"))

	assert.Empty(t, f.composer.Text())
	assert.False(t, f.kv.Has(ports.DraftKey("demo")))
}

func TestComposer_SubmitSessionPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("current session", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.kv.Set(ctx, ports.KeyPendingSessionID, "pending"))
		f.state.SetCurrentSessionID("current")
		assert.Equal(t, "current", f.composer.SubmitSessionID())
	})

	t.Run("selected session", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.kv.Set(ctx, ports.KeyPendingSessionID, "pending"))
		f.state.SelectSession("selected")
		f.state.SetCurrentSessionID("")
		assert.Equal(t, "selected", f.composer.SubmitSessionID())
	})

	t.Run("stored pending id", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.kv.Set(ctx, ports.KeyPendingSessionID, "pending"))
		assert.Equal(t, "pending", f.composer.SubmitSessionID())

		f.composer.SetInput("continue", 8)
		f.composer.Submit()
		env := f.sender.commands()[0]
		assert.Equal(t, "pending", env.SessionID)
		assert.True(t, env.Options.Resume)
	})
}

func TestComposer_SubmitResumesCurrentSession(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.composer.SetInput("next step", 9)
	f.composer.SetThinkingMode(domain.ThinkingThinkHard)
	f.composer.Submit()

	env := f.sender.commands()[0]
	assert.Equal(t, "s1", env.SessionID)
	assert.Equal(t, "s1", env.Options.SessionID)
	assert.True(t, env.Options.Resume)
	assert.Equal(t, "next step\n\nthink hard", env.Command)
	assert.Equal(t, "next step", f.state.Messages()[0].Content)
	assert.Nil(t, f.state.PendingView(), "a resumed session has no pending view")
	assert.Equal(t, domain.ThinkingNone, f.composer.View().Thinking)
}

func TestComposer_SubmitIgnoredWhileLoadingOrEmpty(t *testing.T) {
	f := newFixture(t)

	f.composer.SetInput("   ", 3)
	f.composer.Submit()
	f.state.SetLoading(true, true)
	f.composer.SetInput("hello", 5)
	f.composer.Submit()

	assert.Empty(t, f.sender.sent)
	assert.Equal(t, "hello", f.composer.Text())
}

func TestComposer_ProviderEnvelopes(t *testing.T) {
	ctx := context.Background()

	t.Run("cursor", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Provider = domain.ProviderCursor })
		require.NoError(t, f.kv.Set(ctx, ports.ToolsSettingsKey("cursor"), domain.ToolsSettings{SkipPermissions: true}))
		f.composer.SetInput("hi", 2)
		f.composer.Submit()

		env := f.sender.commands()[0]
		assert.Equal(t, protocol.TypeCursorCommand, env.Type)
		assert.True(t, env.Options.SkipPermissions)
		assert.Empty(t, env.Options.PermissionMode)
	})

	t.Run("codex has no plan mode", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Provider = domain.ProviderCodex })
		f.state.SetCurrentSessionID("c1")
		require.NoError(t, f.kv.Set(ctx, ports.PermissionModeKey("c1"), "plan"))
		f.composer.SetInput("hi", 2)
		f.composer.Submit()

		env := f.sender.commands()[0]
		assert.Equal(t, protocol.TypeCodexCommand, env.Type)
		assert.Equal(t, domain.PermissionDefault, env.Options.PermissionMode)
		assert.Equal(t, "gpt-5", env.Options.Model)
		assert.Nil(t, env.Options.ToolsSettings)
	})
}

func TestComposer_OversizeImageRejected(t *testing.T) {
	f := newFixture(t)

	f.composer.AddFiles([]domain.Attachment{{Name: "huge.png", MimeType: "image/png", Size: 6 * 1024 * 1024}})
	f.composer.Submit()

	assert.Contains(t, f.composer.ImageErrors(), "huge.png")
	assert.Empty(t, f.composer.Attachments())
	assert.Empty(t, f.sender.sent)
}

func TestComposer_AttachmentLimits(t *testing.T) {
	f := newFixture(t)

	var files []domain.Attachment
	for _, n := range []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"} {
		files = append(files, domain.Attachment{Name: n, MimeType: "image/png", Data: []byte("x")})
	}
	files = append(files, domain.Attachment{Name: "notes.txt", MimeType: "text/plain"})
	f.composer.AddFiles(files)

	assert.Len(t, f.composer.Attachments(), MaxAttachments)
	assert.Equal(t, map[string]string{"f.png": "Maximum 5 images allowed"}, f.composer.ImageErrors())

	f.composer.RemoveAttachment(0)
	assert.Len(t, f.composer.Attachments(), 4)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReadAttachment(t *testing.T) {
	dir := t.TempDir()
	named := filepath.Join(dir, "Shot.PNG")
	sniffed := filepath.Join(dir, "clipboard")
	require.NoError(t, os.WriteFile(named, pngHeader, 0o600))
	require.NoError(t, os.WriteFile(sniffed, pngHeader, 0o600))

	a, err := ReadAttachment(named)
	require.NoError(t, err)
	assert.Equal(t, domain.Attachment{Data: pngHeader, MimeType: "image/png", Name: "Shot.PNG", Size: int64(len(pngHeader))}, a)

	a, err = ReadAttachment(sniffed)
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.MimeType)

	_, err = ReadAttachment(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadImages(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "shot.png")
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(shot, pngHeader, 0o600))
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o600))

	files, err := ReadImages([]string{shot})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "shot.png", files[0].Name)

	_, err = ReadImages([]string{shot, notes})
	assert.ErrorIs(t, err, domain.ErrNotAnImage)
	assert.Contains(t, err.Error(), "notes.txt")

	files, err = ReadImages(nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	f := newFixture(t)
	files, err = ReadImages([]string{shot})
	require.NoError(t, err)
	f.composer.AddFiles(files)
	assert.Equal(t, []string{"shot.png"}, f.composer.View().Attachments)
}

func TestComposer_UploadThenSend(t *testing.T) {
	f := newFixture(t)
	images := []domain.UploadedImage{{Name: "shot.png", Data: "data:image/png;base64,AA==", MimeType: "image/png", Size: 1}}
	f.uploader.EXPECT().Upload(mock.Anything, "demo", mock.Anything).Return(images, nil)

	f.composer.AddFiles([]domain.Attachment{{Name: "shot.png", MimeType: "image/png", Data: []byte{1}}})
	f.composer.SetInput("what is this", 12)
	f.composer.Submit()

	env := f.sender.commands()[0]
	assert.Equal(t, images, env.Options.Images)
	assert.Equal(t, images, f.state.Messages()[0].Images)
	assert.Empty(t, f.composer.Attachments())
}

func TestComposer_UploadFailureAbortsSubmit(t *testing.T) {
	f := newFixture(t)
	f.uploader.EXPECT().Upload(mock.Anything, "demo", mock.Anything).Return(nil, errors.New("413"))

	f.composer.AddFiles([]domain.Attachment{{Name: "shot.png", MimeType: "image/png", Data: []byte{1}}})
	f.composer.SetInput("what is this", 12)
	f.composer.Submit()

	assert.Empty(t, f.sender.sent)
	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.KindError, msgs[0].Kind)
	assert.Equal(t, "what is this", f.composer.Text(), "the buffer is kept for a retry")
	assert.Len(t, f.composer.Attachments(), 1)
	assert.False(t, f.state.IsLoading())
}

func TestComposer_SendFailureKeepsBuffer(t *testing.T) {
	f := newFixture(t)
	f.sender.err = domain.ErrNotConnected

	f.composer.SetInput("hello", 5)
	f.composer.Submit()

	assert.Equal(t, "hello", f.composer.Text())
	assert.False(t, f.state.IsLoading())
	msgs := f.state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.KindError, msgs[1].Kind)
}

func TestComposer_BuiltInCommandRunsLocally(t *testing.T) {
	f := newFixture(t)
	f.catalog.EXPECT().Execute(mock.Anything, mock.MatchedBy(func(req ports.ExecuteCommandRequest) bool {
		return req.CommandName == "/clear" && req.Context.ProjectName == "demo"
	})).Return(&domain.CommandResult{Type: domain.ResultBuiltIn, Action: commands.ActionClear}, nil)

	f.state.AppendMessage(domain.ChatMessage{Kind: domain.KindUser, Content: "old"})
	f.composer.SetInput("/clear", 6)
	f.composer.Submit()

	assert.Empty(t, f.sender.sent)
	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Conversation cleared.", msgs[0].Content)
	assert.Empty(t, f.composer.Text())
}

func TestComposer_CommandErrorBecomesMessage(t *testing.T) {
	f := newFixture(t)
	f.catalog.EXPECT().Execute(mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	f.composer.SetInput("/help", 5)
	f.composer.Submit()

	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.KindAssistant, msgs[0].Kind)
	assert.Contains(t, msgs[0].Content, "boom")
}

func TestComposer_CustomCommandNeedsConfirmation(t *testing.T) {
	for _, answer := range []bool{false, true} {
		f := newFixture(t)
		f.confirmer.answer = answer
		f.catalog.EXPECT().Execute(mock.Anything, mock.Anything).
			Return(&domain.CommandResult{Type: domain.ResultCustom, Content: "run !`make deploy`", HasBashCommands: true}, nil)

		f.composer.SetInput("/deploy prod", 12)
		f.composer.Submit()

		require.Len(t, f.confirmer.prompts, 1)
		if !answer {
			assert.Empty(t, f.sender.sent)
			assert.Equal(t, "Command cancelled.", f.state.Messages()[0].Content)
			continue
		}
		envs := f.sender.commands()
		require.Len(t, envs, 1)
		assert.Equal(t, "run !`make deploy`", envs[0].Command)
	}
}

func TestComposer_SkillIsSentAsTurn(t *testing.T) {
	f := newFixture(t)

	f.composer.SetInput("/pdf report.pdf", 15)
	f.composer.Submit()

	envs := f.sender.commands()
	require.Len(t, envs, 1)
	assert.Equal(t, "/pdf report.pdf", envs[0].Command)
}

func TestComposer_AbortTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("temporary ids are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.state.SetCurrentSessionID("new-session-123")
		f.state.SetPendingView(&domain.PendingViewSession{SessionID: "new-session-456"})
		require.NoError(t, f.kv.Set(ctx, ports.KeyPendingSessionID, "real-1"))

		assert.Equal(t, "real-1", f.composer.AbortTarget())
		require.NoError(t, f.composer.Abort())
		assert.Equal(t, []any{protocol.NewAbortEnvelope("real-1", domain.ProviderClaude)}, f.sender.sent)
	})

	t.Run("pending view before stored id", func(t *testing.T) {
		f := newFixture(t)
		f.state.SetPendingView(&domain.PendingViewSession{SessionID: "pv"})
		require.NoError(t, f.kv.Set(ctx, ports.KeyPendingSessionID, "stored"))
		assert.Equal(t, "pv", f.composer.AbortTarget())
	})

	t.Run("cursor stored id", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Provider = domain.ProviderCursor })
		require.NoError(t, f.kv.Set(ctx, ports.KeyCursorSessionID, "cur-1"))
		assert.Equal(t, "cur-1", f.composer.AbortTarget())
	})

	t.Run("cursor id recorded by the router survives a restart", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Provider = domain.ProviderCursor })
		r := router.New(router.Options{KV: f.kv, Scheduler: f.sched, State: f.state})
		f.state.SetPendingView(&domain.PendingViewSession{StartedAt: now})
		r.HandleFrame([]byte(`{"type":"cursor-system","data":{"type":"system","subtype":"init","session_id":"cur-9"}}`))
		require.Equal(t, "cur-9", f.composer.AbortTarget())

		restarted := newFixture(t, func(o *Options) {
			o.KV = f.kv
			o.Provider = domain.ProviderCursor
		})
		restarted.state.SetTemporaryID("new-session-1")
		assert.Equal(t, "cur-9", restarted.composer.AbortTarget())
		require.NoError(t, restarted.composer.Abort())
		assert.Equal(t, []any{protocol.NewAbortEnvelope("cur-9", domain.ProviderCursor)}, restarted.sender.sent)
	})

	t.Run("nothing to abort", func(t *testing.T) {
		f := newFixture(t)
		f.state.SetTemporaryID("new-session-1")
		f.state.SetPendingView(&domain.PendingViewSession{})

		assert.ErrorIs(t, f.composer.Abort(), domain.ErrNoAbortTarget)
		assert.Empty(t, f.sender.sent)
	})
}

func TestComposer_AbortNeverTargetsTemporary(t *testing.T) {
	ids := []string{"", "new-session-1", "new-session-2", "real"}
	for _, current := range ids {
		for _, pv := range ids {
			for _, selected := range ids {
				f := newFixture(t)
				f.state.SelectSession(selected)
				f.state.SetCurrentSessionID(current)
				f.state.SetPendingView(&domain.PendingViewSession{SessionID: pv})

				target := f.composer.AbortTarget()
				assert.False(t, domain.IsTemporarySessionID(target), "current=%q pv=%q selected=%q", current, pv, selected)
			}
		}
	}
}

func TestComposer_DecideRemovesRequests(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		f.state.EnqueuePermission(domain.PendingPermissionRequest{RequestID: id})
	}
	f.state.SetStatus(&domain.ClaudeStatus{Text: "Waiting for permission", CanInterrupt: true})

	require.NoError(t, f.composer.Decide([]string{"r3", "r1"}, domain.PermissionDecision{Allow: true, RememberEntry: "Bash(ls:*)"}))

	require.Len(t, f.sender.sent, 2)
	first := f.sender.sent[0].(protocol.PermissionResponseEnvelope)
	assert.Equal(t, "r3", first.RequestID)
	assert.True(t, first.Allow)
	assert.Equal(t, "Bash(ls:*)", first.RememberEntry)

	pending := f.state.PendingPermissions()
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].RequestID)
	assert.NotNil(t, f.state.Status(), "status stays while a request waits")

	require.NoError(t, f.composer.Decide([]string{"r2"}, domain.PermissionDecision{Allow: false, Message: "no"}))
	assert.Empty(t, f.state.PendingPermissions())
	assert.Nil(t, f.state.Status())
}

func TestComposer_GrantToolPermission(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.kv.Set(context.Background(), ports.ToolsSettingsKey("claude"),
		domain.ToolsSettings{AllowedTools: []string{"Read"}, DisallowedTools: []string{"Bash(rm:*)"}}))

	g := f.composer.GrantToolPermission("t1", "Bash(rm:*)")
	assert.Equal(t, domain.GrantGranted, g.State)

	var settings domain.ToolsSettings
	_, err := f.kv.Get(context.Background(), ports.ToolsSettingsKey("claude"), &settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Bash(rm:*)"}, settings.AllowedTools)
	assert.Empty(t, settings.DisallowedTools)

	recorded, ok := f.state.Grant("t1")
	require.True(t, ok)
	assert.Equal(t, domain.GrantGranted, recorded.State)

	g = f.composer.GrantToolPermission("t2", "")
	assert.Equal(t, domain.GrantError, g.State)
	assert.Empty(t, f.sender.sent, "grants never reach the backend")
}

func TestComposer_TabCyclesPermissionMode(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	assert.True(t, f.composer.HandleKey(KeyEvent{Key: KeyTab}))
	assert.Equal(t, domain.PermissionAcceptEdits, f.composer.PermissionMode())

	var saved string
	_, err := f.kv.Get(context.Background(), ports.PermissionModeKey("s1"), &saved)
	require.NoError(t, err)
	assert.Equal(t, "acceptEdits", saved)

	f.state.SelectSession("s2")
	assert.Equal(t, domain.PermissionDefault, f.composer.PermissionMode(), "each session keeps its own mode")
	f.state.SelectSession("s1")
	assert.Equal(t, domain.PermissionAcceptEdits, f.composer.PermissionMode())
}

func TestComposer_EnterBindings(t *testing.T) {
	f := newFixture(t)
	f.composer.SetInput("line", 4)

	f.composer.HandleKey(KeyEvent{Key: KeyEnter, Shift: true})
	assert.Equal(t, "line\n", f.composer.Text())
	assert.Empty(t, f.sender.sent)

	f.composer.SetMultiline(true)
	f.composer.HandleKey(KeyEvent{Key: KeyEnter})
	assert.Equal(t, "line\n\n", f.composer.Text())

	f.composer.HandleKey(KeyEvent{Key: KeyEnter, Ctrl: true})
	assert.Len(t, f.sender.sent, 1)

	g := newFixture(t, func(o *Options) { o.SendByCtrlEnter = true })
	g.composer.SetInput("x", 1)
	g.composer.HandleKey(KeyEvent{Key: KeyEnter})
	assert.Equal(t, "x\n", g.composer.Text())
	g.composer.HandleKey(KeyEvent{Key: KeyEnter, Ctrl: true})
	assert.Len(t, g.sender.sent, 1)
}

func TestComposer_EditingKeys(t *testing.T) {
	f := newFixture(t)

	f.typeText("abc\ndef")
	f.composer.HandleKey(KeyEvent{Key: KeyHome})
	assert.Equal(t, 4, f.composer.Caret())
	f.composer.HandleKey(KeyEvent{Key: KeyBackspace})
	assert.Equal(t, "abcdef", f.composer.Text())
	f.composer.HandleKey(KeyEvent{Key: KeyLeft})
	f.composer.HandleKey(KeyEvent{Key: KeyDelete})
	assert.Equal(t, "abdef", f.composer.Text())
	f.composer.HandleKey(KeyEvent{Key: KeyEnd})
	assert.Equal(t, 5, f.composer.Caret())
}

func TestComposer_LatestValueSeenByQueuedSubmit(t *testing.T) {
	f := newFixture(t)
	var queued []func()
	f.composer.opts.Exec = queueExec{queued: &queued}

	f.uploader.EXPECT().Upload(mock.Anything, "demo", mock.Anything).Return(nil, nil)
	f.composer.AddFiles([]domain.Attachment{{Name: "a.png", MimeType: "image/png", Data: []byte{1}}})
	f.composer.SetInput("first", 5)
	f.composer.Submit()
	f.composer.InsertText(" and more")

	for len(queued) > 0 {
		fn := queued[0]
		queued = queued[1:]
		fn()
	}

	envs := f.sender.commands()
	require.Len(t, envs, 1)
	assert.Equal(t, "first and more", envs[0].Command)
}

// queueExec runs work inline but defers posts until drained
type queueExec struct {
	queued *[]func()
}

func (q queueExec) Go(fn func())   { fn() }
func (q queueExec) Post(fn func()) { *q.queued = append(*q.queued, fn) }
