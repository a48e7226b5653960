package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
)

type queueExec struct {
	posted []func()
}

func (q *queueExec) Go(fn func())   { fn() }
func (q *queueExec) Post(fn func()) { q.posted = append(q.posted, fn) }

func (q *queueExec) drain() {
	for len(q.posted) > 0 {
		fn := q.posted[0]
		q.posted = q.posted[1:]
		fn()
	}
}

func TestHolder_PublishCoalesces(t *testing.T) {
	exec := &queueExec{}
	h := NewHolder(exec)

	var snaps []State
	h.Subscribe(func(s State) { snaps = append(snaps, s) })

	h.AppendMessage(domain.ChatMessage{Kind: domain.KindUser, Content: "hi"})
	h.SetLoading(true, true)
	h.SetCurrentSessionID("s1")
	require.Len(t, exec.posted, 1)

	exec.drain()
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Messages, 1)
	assert.True(t, snaps[0].IsLoading)
	assert.Equal(t, "s1", snaps[0].CurrentSessionID)
}

func TestHolder_SnapshotIsACopy(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	h.AppendMessage(domain.ChatMessage{Kind: domain.KindAssistant, Content: "a"})

	snap := h.Snapshot()
	h.Tail().Content = "changed"

	assert.Equal(t, "a", snap.Messages[0].Content)
}

func TestHolder_EnqueuePermissionIsIdempotent(t *testing.T) {
	h := NewHolder(eventloop.Inline{})

	assert.True(t, h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "r1"}))
	assert.False(t, h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "r1", ToolName: "Bash"}))
	assert.True(t, h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "r2"}))

	assert.Equal(t, 1, h.RemovePermissions("r1", "missing"))
	require.Len(t, h.PendingPermissions(), 1)
	assert.Equal(t, "r2", h.PendingPermissions()[0].RequestID)
}

func TestHolder_ClearPermissionsBySession(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "a", SessionID: "s1"})
	h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "b", SessionID: "s2"})
	h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "c"})

	h.ClearPermissions("s1")

	perms := h.PendingPermissions()
	require.Len(t, perms, 1)
	assert.Equal(t, "b", perms[0].RequestID)
}

func TestHolder_BackfillPermissionSession(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "a"})
	h.EnqueuePermission(domain.PendingPermissionRequest{RequestID: "b", SessionID: "other"})

	h.BackfillPermissionSession("abc")

	perms := h.PendingPermissions()
	assert.Equal(t, "abc", perms[0].SessionID)
	assert.Equal(t, "other", perms[1].SessionID)
}

func TestHolder_ActiveViewSessionID(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	assert.Empty(t, h.ActiveViewSessionID())

	h.SetPendingView(&domain.PendingViewSession{StartedAt: time.Now()})
	assert.Empty(t, h.ActiveViewSessionID())

	h.SetPendingView(&domain.PendingViewSession{SessionID: "pending"})
	assert.Equal(t, "pending", h.ActiveViewSessionID())

	h.SetCurrentSessionID("current")
	assert.Equal(t, "current", h.ActiveViewSessionID())

	h.SelectSession("selected")
	assert.Equal(t, "selected", h.ActiveViewSessionID())
}

func TestState_Identity(t *testing.T) {
	s := State{TemporaryID: "new-session-1"}
	assert.Equal(t, domain.SessionIdentity{ID: "new-session-1", State: domain.IdentityTemporary}, s.Identity())

	s.PendingView = &domain.PendingViewSession{SessionID: "abc"}
	assert.Equal(t, domain.IdentityPending, s.Identity().State)

	s.CurrentSessionID = "abc"
	assert.Equal(t, domain.SessionIdentity{ID: "abc", State: domain.IdentityDurable}, s.Identity())
}

func TestSessions_ReplaceTemporaryMovesBookkeeping(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	s := NewSessions(h)
	h.SetTemporaryID("new-session-1")
	s.MarkActive("new-session-1")
	s.MarkProcessing("new-session-1")

	s.ReplaceTemporary("abc")

	assert.Equal(t, []string{"abc"}, s.Active())
	assert.Equal(t, []string{"abc"}, s.Processing())
	assert.Empty(t, h.TemporaryID())
}

func TestSessions_NavigateTo(t *testing.T) {
	h := NewHolder(eventloop.Inline{})
	s := NewSessions(h)
	h.AppendMessage(domain.ChatMessage{Content: "old"})
	h.SetPendingView(&domain.PendingViewSession{})

	var navigated string
	s.OnNavigate(func(id string) { navigated = id })
	s.NavigateTo("forked")

	assert.Equal(t, "forked", navigated)
	assert.Equal(t, "forked", h.SelectedSessionID())
	assert.Equal(t, "forked", h.CurrentSessionID())
	assert.Nil(t, h.PendingView())
	assert.Len(t, h.Messages(), 1)
}
