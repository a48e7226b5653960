package router

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/conduit/internal/adapters/storage"
	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/protocol"
	"github.com/renato0307/conduit/internal/timer/timertest"
)

type fixture struct {
	kv       *storage.MemoryKVStore
	notified []protocol.EventType
	router   *Router
	sched    *timertest.Scheduler
	sessions *conversation.Sessions
	state    *conversation.Holder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kv:    storage.NewMemoryKVStore(),
		sched: timertest.New(),
		state: conversation.NewHolder(eventloop.Inline{}),
	}
	f.sessions = conversation.NewSessions(f.state)
	f.router = New(Options{
		KV:        f.kv,
		Lifecycle: f.sessions,
		Notify:    func(ev protocol.Event) { f.notified = append(f.notified, ev.Type) },
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
		Scheduler: f.sched,
		State:     f.state,
	})
	return f
}

func (f *fixture) send(frames ...string) {
	for _, frame := range frames {
		f.router.HandleFrame([]byte(frame))
	}
}

// startNewSession mirrors what the composer does when submitting without a session
func (f *fixture) startNewSession() string {
	temp := domain.NewTemporarySessionID(time.UnixMilli(1700000000000))
	f.state.SetTemporaryID(temp)
	f.state.SetPendingView(&domain.PendingViewSession{StartedAt: time.Unix(1700000000, 0)})
	f.state.SetLoading(true, true)
	f.sessions.MarkActive(temp)
	f.sessions.MarkProcessing(temp)
	return temp
}

func delta(sessionID, text string) string {
	return `{"type":"claude-response","sessionId":"` + sessionID + `","data":{"type":"content_block_delta","delta":{"type":"text_delta","text":"` + text + `"}}}`
}

func TestRouter_HandlesEveryEventType(t *testing.T) {
	f := newFixture(t)
	for _, et := range protocol.AllEventTypes {
		assert.True(t, f.router.Handles(et), "no handler for %s", et)
	}
	assert.Len(t, f.router.handlers, len(protocol.AllEventTypes))
}

func TestRouter_StreamedDeltasFlushTogether(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(delta("s1", "Hel"))
	f.sched.Advance(20 * time.Millisecond)
	f.send(delta("s1", "lo, "))
	f.sched.Advance(20 * time.Millisecond)
	f.send(delta("s1", "world"))
	f.sched.Advance(10 * time.Millisecond)

	assert.Empty(t, f.state.Messages(), "nothing reaches the list before the flush")

	f.sched.Advance(50 * time.Millisecond)
	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello, world", msgs[0].Content)
	assert.True(t, msgs[0].IsStreaming)
	assert.Equal(t, 0, f.sched.Pending())

	f.send(`{"type":"claude-response","sessionId":"s1","data":{"type":"content_block_stop"}}`)
	msgs = f.state.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsStreaming)
}

func TestRouter_StreamOrderIndependentOfChunking(t *testing.T) {
	text := "The quick brown fox, jumps over 13 lazy dogs."
	for _, size := range []int{1, 2, 3, 7, 11, len(text)} {
		f := newFixture(t)
		f.state.SetCurrentSessionID("s1")

		for i := 0; i < len(text); i += size {
			end := min(i+size, len(text))
			f.send(delta("s1", text[i:end]))
			if (i/size)%4 == 3 {
				f.sched.Advance(StreamFlushInterval)
			}
		}
		f.send(`{"type":"claude-response","sessionId":"s1","data":{"type":"content_block_stop"}}`)

		msgs := f.state.Messages()
		require.Len(t, msgs, 1, "chunk size %d", size)
		assert.Equal(t, text, msgs[0].Content, "chunk size %d", size)
	}
}

func TestRouter_AtMostOneOpenStream(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	frames := []string{
		delta("s1", "a"),
		`{"type":"claude-output","sessionId":"s1","data":"raw line"}`,
		delta("s1", "b"),
		`{"type":"claude-response","sessionId":"s1","data":{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Read","input":{"path":"x"}}]}}}`,
		delta("s1", "c"),
		`{"type":"cursor-output","sessionId":"s1","data":"more"}`,
		`{"type":"claude-interactive-prompt","sessionId":"s1","data":"Continue?"}`,
		delta("s1", "d"),
	}
	for i, frame := range frames {
		f.send(frame)
		assert.LessOrEqual(t, f.state.Snapshot().StreamingCount(), 1, "after frame %d", i)
		if i%2 == 1 {
			f.sched.Advance(StreamFlushInterval)
			assert.LessOrEqual(t, f.state.Snapshot().StreamingCount(), 1, "after flush %d", i)
		}
	}
	f.sched.Advance(StreamFlushInterval)
	snap := f.state.Snapshot()
	assert.LessOrEqual(t, snap.StreamingCount(), 1)
	if snap.StreamingCount() == 1 {
		assert.True(t, snap.Messages[len(snap.Messages)-1].IsStreaming, "the open stream is the tail")
	}
}

func TestRouter_OutputIsLineJoined(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(`{"type":"cursor-output","sessionId":"s1","data":"line one"}`)
	f.sched.Advance(StreamFlushInterval)
	f.send(`{"type":"cursor-output","sessionId":"s1","data":"line two"}`,
		`{"type":"cursor-output","sessionId":"s1","data":"line three"}`)
	f.sched.Advance(StreamFlushInterval)

	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "line one\nline two\nline three", msgs[0].Content)
}

func TestRouter_OutOfViewEventsNeverAppend(t *testing.T) {
	for _, other := range []string{"s2", "new-session-99", "S1", " s1"} {
		t.Run(other, func(t *testing.T) {
			f := newFixture(t)
			f.state.SetCurrentSessionID("s1")

			f.send(
				delta(other, "leak"),
				`{"type":"claude-response","sessionId":"`+other+`","data":{"type":"assistant","message":{"role":"assistant","content":"leak"}}}`,
				`{"type":"claude-output","sessionId":"`+other+`","data":"leak"}`,
				`{"type":"claude-error","sessionId":"`+other+`","error":"leak"}`,
				`{"type":"codex-response","sessionId":"`+other+`","data":{"type":"item","itemType":"agent_message","text":"leak"}}`,
				`{"type":"session-aborted","sessionId":"`+other+`"}`,
			)
			f.sched.Advance(time.Second)

			assert.Empty(t, f.state.Messages())
		})
	}
}

func TestRouter_NoViewDropsScopedEvents(t *testing.T) {
	f := newFixture(t)

	f.send(`{"type":"claude-response","data":{"type":"assistant","message":{"role":"assistant","content":"hi"}}}`,
		`{"type":"claude-error","error":"boom"}`)

	assert.Empty(t, f.state.Messages())
}

func TestRouter_OutOfViewLifecycleStillUpdatesBookkeeping(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")
	f.sessions.MarkActive("bg")
	f.sessions.MarkProcessing("bg")
	f.sessions.MarkActive("bg2")

	f.send(`{"type":"claude-complete","sessionId":"bg","exitCode":0}`,
		`{"type":"session-status","sessionId":"bg2","isProcessing":true}`)

	assert.False(t, f.sessions.IsActive("bg"))
	assert.False(t, f.sessions.IsProcessing("bg"))
	assert.True(t, f.sessions.IsProcessing("bg2"))
	assert.Empty(t, f.state.Messages())
}

func TestRouter_PermissionRequestThenCancel(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(`{"type":"claude-permission-request","sessionId":"s1","requestId":"r1","toolName":"Bash","input":{"command":"ls"}}`)
	perms := f.state.PendingPermissions()
	require.Len(t, perms, 1)
	assert.Equal(t, "Bash", perms[0].ToolName)
	assert.JSONEq(t, `{"command":"ls"}`, string(perms[0].Input))
	require.NotNil(t, f.state.Status())
	assert.True(t, f.state.Status().CanInterrupt)

	f.send(`{"type":"claude-permission-request","sessionId":"s1","requestId":"r1","toolName":"Other"}`)
	assert.Len(t, f.state.PendingPermissions(), 1, "duplicate ids are ignored")

	f.send(`{"type":"claude-permission-cancelled","sessionId":"s1","requestId":"r1"}`)
	assert.Empty(t, f.state.PendingPermissions())
	assert.Nil(t, f.state.Status())
}

func TestRouter_SessionCreatedThenCompletePromotes(t *testing.T) {
	f := newFixture(t)
	temp := f.startNewSession()
	assert.Equal(t, domain.IdentityTemporary, f.state.Snapshot().Identity().State)

	f.send(`{"type":"claude-permission-request","requestId":"r1","toolName":"Edit"}`)
	f.send(`{"type":"session-created","sessionId":"abc"}`)

	var pending string
	ok, err := f.kv.Get(context.Background(), ports.KeyPendingSessionID, &pending)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", pending)
	assert.Equal(t, domain.SessionIdentity{ID: "abc", State: domain.IdentityPending}, f.state.Snapshot().Identity())
	assert.Equal(t, "abc", f.state.PendingPermissions()[0].SessionID, "requests without a session are backfilled")
	assert.True(t, f.sessions.IsActive("abc"))
	assert.False(t, f.sessions.IsActive(temp))
	assert.Contains(t, f.notified, protocol.EventSessionCreated)

	f.send(`{"type":"claude-complete","exitCode":0}`)

	assert.Equal(t, "abc", f.state.CurrentSessionID())
	assert.Equal(t, domain.IdentityDurable, f.state.Snapshot().Identity().State)
	assert.False(t, f.kv.Has(ports.KeyPendingSessionID))
	assert.Nil(t, f.state.PendingView())
	assert.False(t, f.state.IsLoading())
	assert.Empty(t, f.state.PendingPermissions())
	assert.False(t, f.sessions.IsActive("abc"))
}

func TestRouter_FailedCompleteKeepsPending(t *testing.T) {
	f := newFixture(t)
	f.startNewSession()

	f.send(`{"type":"session-created","sessionId":"abc"}`,
		`{"type":"claude-complete","sessionId":"abc","exitCode":1}`)

	assert.Empty(t, f.state.CurrentSessionID())
	assert.True(t, f.kv.Has(ports.KeyPendingSessionID))
	assert.False(t, f.state.IsLoading())
}

func TestRouter_SessionCreatedIgnoredWhenDurable(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(`{"type":"session-created","sessionId":"other"}`)

	assert.False(t, f.kv.Has(ports.KeyPendingSessionID))
	assert.Equal(t, "s1", f.state.CurrentSessionID())
}

func TestRouter_UnscopedErrorBeforeSessionID(t *testing.T) {
	f := newFixture(t)
	f.startNewSession()

	f.send(`{"type":"codex-error","error":{"message":"codex not installed"}}`)

	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.KindError, msgs[0].Kind)
	assert.Equal(t, "Error: codex not installed", msgs[0].Content)
	assert.False(t, f.state.IsLoading())
}

func TestRouter_UnnamedViewDropsUnscopedNonErrors(t *testing.T) {
	f := newFixture(t)
	f.startNewSession()

	f.send(`{"type":"claude-response","data":{"type":"assistant","message":{"role":"assistant","content":"stray"}}}`,
		`{"type":"claude-interactive-prompt","data":"stray prompt"}`,
		`{"type":"claude-output","data":"stray output"}`)
	f.sched.Advance(time.Second)
	assert.Empty(t, f.state.Messages())

	f.send(`{"type":"claude-permission-request","requestId":"r1","toolName":"Bash"}`)
	assert.Len(t, f.state.PendingPermissions(), 1)

	f.send(`{"type":"session-created","sessionId":"abc"}`,
		`{"type":"claude-response","data":{"type":"assistant","message":{"role":"assistant","content":"named now"}}}`)
	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "named now", msgs[0].Content)
}

func TestRouter_CursorInitAdoptsSession(t *testing.T) {
	f := newFixture(t)
	f.startNewSession()

	f.send(`{"type":"cursor-system","data":{"type":"system","subtype":"init","session_id":"cur-1"}}`)

	var stored string
	ok, err := f.kv.Get(context.Background(), ports.KeyCursorSessionID, &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cur-1", stored)
	assert.Equal(t, "cur-1", f.state.CurrentSessionID())
}

func TestRouter_CursorInitForkStoresNewSession(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("c1")
	var navigated string
	f.sessions.OnNavigate(func(id string) { navigated = id })

	f.send(`{"type":"cursor-system","sessionId":"c1","data":{"type":"system","subtype":"init","session_id":"c2"}}`)

	assert.Equal(t, "c2", navigated)
	var stored string
	_, err := f.kv.Get(context.Background(), ports.KeyCursorSessionID, &stored)
	require.NoError(t, err)
	assert.Equal(t, "c2", stored)
}

func TestRouter_CursorInitOutOfViewIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("c1")

	f.send(`{"type":"cursor-system","sessionId":"other","data":{"type":"system","subtype":"init","session_id":"other"}}`)

	assert.False(t, f.kv.Has(ports.KeyCursorSessionID))
	assert.Equal(t, "c1", f.state.CurrentSessionID())
}

func TestRouter_SystemInitForkNavigates(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")
	var navigated string
	f.sessions.OnNavigate(func(id string) { navigated = id })

	f.send(`{"type":"claude-response","sessionId":"s1","data":{"type":"system","subtype":"init","session_id":"s2"}}`)

	assert.Equal(t, "s2", navigated)
	assert.Equal(t, "s2", f.state.CurrentSessionID())
}

func TestRouter_SystemInitSameSessionIsQuiet(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")
	navigated := false
	f.sessions.OnNavigate(func(string) { navigated = true })

	f.send(`{"type":"cursor-system","sessionId":"s1","data":{"type":"system","subtype":"init","session_id":"s1"}}`)

	assert.False(t, navigated)
}

func TestRouter_MalformedPayloadsAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	assert.NotPanics(t, func() {
		f.send(
			`not json`,
			`{"sessionId":"s1"}`,
			`{"type":"claude-response","sessionId":"s1","data":"just a string"}`,
			`{"type":"claude-response","sessionId":"s1"}`,
			`{"type":"claude-status","sessionId":"s1","data":[1,2]}`,
			`{"type":"codex-response","sessionId":"s1","data":{"type":"item","itemType":"hologram"}}`,
			`{"type":"claude-permission-request","sessionId":"s1"}`,
			`{"type":"mystery-event","sessionId":"s1"}`,
		)
	})
	assert.Empty(t, f.state.Messages())

	f.send(delta("s1", "still works"))
	f.sched.Advance(StreamFlushInterval)
	require.Len(t, f.state.Messages(), 1)
	assert.Equal(t, "still works", f.state.Messages()[0].Content)
}

func TestRouter_ClaudeToolUseAndResult(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(
		`{"type":"claude-response","sessionId":"s1","data":{"type":"assistant","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"Let me look."},{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}}}`,
		`{"type":"claude-response","sessionId":"s1","data":{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"main.go","is_error":false}]}}}`,
	)

	msgs := f.state.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].IsThinking)
	assert.Equal(t, "Let me look.", msgs[1].Content)
	assert.Equal(t, domain.KindTool, msgs[2].Kind)
	assert.Equal(t, `{"command":"ls"}`, msgs[2].ToolInput)
	require.NotNil(t, msgs[2].ToolResult)
	assert.Equal(t, "main.go", msgs[2].ToolResult.Content)
}

func TestRouter_ClaudeStatusAndTokenBudget(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(`{"type":"claude-status","sessionId":"s1","data":{"message":"Reading files","tokens":120,"can_interrupt":false}}`,
		`{"type":"token-budget","sessionId":"s1","data":{"used":10,"total":200000}}`)

	st := f.state.Status()
	require.NotNil(t, st)
	assert.Equal(t, domain.ClaudeStatus{Text: "Reading files", Tokens: 120}, *st)
	assert.True(t, f.state.IsLoading())
	assert.False(t, f.state.Snapshot().CanAbort)
	assert.JSONEq(t, `{"used":10,"total":200000}`, string(f.state.TokenBudget()))
}

func TestRouter_SessionAborted(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")
	f.state.SetLoading(true, true)
	f.send(delta("s1", "partial"),
		`{"type":"claude-permission-request","sessionId":"s1","requestId":"r1","toolName":"Bash"}`)

	f.send(`{"type":"session-aborted","sessionId":"s1"}`)

	msgs := f.state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "partial", msgs[0].Content)
	assert.False(t, msgs[0].IsStreaming)
	assert.Equal(t, AbortedNotice, msgs[1].Content)
	assert.False(t, f.state.IsLoading())
	assert.Nil(t, f.state.Status())
	assert.Empty(t, f.state.PendingPermissions())
}

func TestRouter_CursorResultFinalizesStream(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("c1")
	f.state.SetLoading(true, true)

	f.send(`{"type":"cursor-output","sessionId":"c1","data":"thinking out loud"}`,
		`{"type":"cursor-result","sessionId":"c1","data":{"result":"Final answer","subtype":"success"}}`)

	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Final answer", msgs[0].Content)
	assert.False(t, msgs[0].IsStreaming)
	assert.False(t, f.state.IsLoading())
}

func TestRouter_CodexItems(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("x1")

	f.send(
		`{"type":"codex-response","sessionId":"x1","data":{"type":"item","itemType":"reasoning","text":"plan"}}`,
		`{"type":"codex-response","sessionId":"x1","data":{"type":"item","itemType":"command_execution","command":"go test ./...","output":"FAIL","exitCode":1}}`,
		`{"type":"codex-response","sessionId":"x1","data":{"type":"item","itemType":"mcp_tool_call","server":"docs","tool":"search","arguments":{"q":"x"},"result":"found"}}`,
		`{"type":"codex-response","sessionId":"x1","data":{"type":"item","itemType":"agent_message","message":{"role":"assistant","content":"Done."}}}`,
		`{"type":"codex-response","sessionId":"x1","data":{"type":"turn_failed","error":{"message":"quota"}}}`,
	)

	msgs := f.state.Messages()
	require.Len(t, msgs, 5)
	assert.True(t, msgs[0].IsThinking)
	assert.Equal(t, "Bash", msgs[1].ToolName)
	assert.True(t, msgs[1].ToolResult.IsError)
	assert.Equal(t, "docs:search", msgs[2].ToolName)
	assert.Equal(t, "found", msgs[2].ToolResult.Content)
	assert.Equal(t, "Done.", msgs[3].Content)
	assert.Equal(t, "Error: quota", msgs[4].Content)
}

func TestRouter_CodexCompletePromotesActualSession(t *testing.T) {
	f := newFixture(t)
	f.startNewSession()

	f.send(`{"type":"session-created","sessionId":"pend-1"}`,
		`{"type":"codex-complete","sessionId":"pend-1","actualSessionId":"thread-7"}`)

	assert.Equal(t, "thread-7", f.state.CurrentSessionID())
	assert.Nil(t, f.state.PendingView())
	assert.False(t, f.kv.Has(ports.KeyPendingSessionID))
	assert.False(t, f.state.IsLoading())
}

func TestRouter_NotificationsReachHost(t *testing.T) {
	f := newFixture(t)

	f.send(`{"type":"projects_updated"}`, `{"type":"taskmaster-tasks-updated"}`)

	assert.Equal(t, []protocol.EventType{protocol.EventProjectsUpdated, protocol.EventTaskmasterTasksUpdated}, f.notified)
}

func TestRouter_ErrorMessageText(t *testing.T) {
	f := newFixture(t)
	f.state.SetCurrentSessionID("s1")

	f.send(`{"type":"claude-error","sessionId":"s1","error":"rate limited"}`)

	msgs := f.state.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasSuffix(msgs[0].Content, "rate limited"))
}
