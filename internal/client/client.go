// Package client wires one connection's worth of conversation: the event
// loop, the shared state, the router, the resolver and the composer.
package client

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/renato0307/conduit/internal/adapters/sound"
	"github.com/renato0307/conduit/internal/commands"
	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/protocol"
	"github.com/renato0307/conduit/internal/router"
)

// Transport is the realtime channel a client talks through
type Transport interface {
	ports.Sender
	Run(ctx context.Context, handle ports.FrameHandler) error
}

// Alerter plays a sound for an alert
type Alerter interface {
	Play(a sound.Alert) error
}

// Options configures a Client
type Options struct {
	Alerter   Alerter
	Catalog   ports.CommandCatalog
	Files     ports.FileLister
	KV        ports.KVStore
	Models    map[domain.Provider]string
	Notify    func(protocol.Event)
	Project   domain.Project
	// Provider defaults to the one saved under ports.KeySelectedProvider, then claude
	Provider        domain.Provider
	SendByCtrlEnter bool
	Transport       Transport
	Uploader        ports.ImageUploader
}

// Snapshot is everything a host needs to render
type Snapshot struct {
	Composer     composer.View
	Connected    bool
	Conversation conversation.State
}

// ConfirmFunc shows prompt and reports the user's answer through answer,
// from any goroutine
type ConfirmFunc func(prompt string, answer func(bool))

// Client owns the loop and everything that runs on it
type Client struct {
	composer  *composer.Composer
	loop      *eventloop.Loop
	opts      Options
	resolver  *commands.Resolver
	router    *router.Router
	sessions  *conversation.Sessions
	state     *conversation.Holder
	transport Transport

	// loop-owned
	connected   bool
	dirty       bool
	last        Snapshot
	listeners   []func(Snapshot)
	hasSnapshot bool

	mu      sync.Mutex
	confirm ConfirmFunc
}

// New builds a client. Nothing runs until Run.
func New(opts Options) *Client {
	c := &Client{
		loop:      eventloop.New(),
		opts:      opts,
		transport: opts.Transport,
	}
	c.state = conversation.NewHolder(c.loop)
	c.sessions = conversation.NewSessions(c.state)
	c.resolver = commands.NewResolver(opts.Catalog, opts.KV)

	provider := opts.Provider
	if provider == "" {
		provider = savedProvider(opts.KV)
	}

	c.router = router.New(router.Options{
		KV:        opts.KV,
		Lifecycle: c.sessions,
		Notify:    c.notify,
		Scheduler: c.loop,
		State:     c.state,
	})
	c.composer = composer.New(composer.Options{
		Confirmer:       c,
		Exec:            c.loop,
		Files:           opts.Files,
		KV:              opts.KV,
		Lifecycle:       c.sessions,
		Models:          opts.Models,
		OnChange:        c.markDirty,
		Project:         opts.Project,
		Provider:        provider,
		Resolver:        c.resolver,
		Scheduler:       c.loop,
		SendByCtrlEnter: opts.SendByCtrlEnter || savedFlag(opts.KV, ports.KeySendByCtrlEnter),
		Sender:          c,
		State:           c.state,
		Uploader:        opts.Uploader,
	})
	c.state.Subscribe(func(conversation.State) { c.markDirty() })
	return c
}

func savedProvider(kv ports.KVStore) domain.Provider {
	if kv == nil {
		return domain.ProviderClaude
	}
	var name string
	if ok, err := kv.Get(context.Background(), ports.KeySelectedProvider, &name); err != nil || !ok {
		return domain.ProviderClaude
	}
	p, err := domain.ParseProvider(name)
	if err != nil {
		logging.Logger.Warn("Ignoring saved provider", "provider", name, "error", err)
		return domain.ProviderClaude
	}
	return p
}

func savedFlag(kv ports.KVStore, key string) bool {
	if kv == nil {
		return false
	}
	var on bool
	if _, err := kv.Get(context.Background(), key, &on); err != nil {
		return false
	}
	return on
}

// Run drives the loop and the transport until ctx ends or the transport gives up
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := c.loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	c.loop.Post(func() {
		c.composer.LoadCommands(false)
		c.markDirty()
	})

	if c.transport != nil {
		g.Go(func() error {
			err := c.transport.Run(ctx, c.handleFrame)
			if err != nil {
				logging.Logger.Error("Transport stopped", "error", err)
			}
			return err
		})
	}
	return g.Wait()
}

// handleFrame runs on the transport's goroutine and hands the frame to the loop
func (c *Client) handleFrame(raw []byte) {
	c.loop.Post(func() { c.router.HandleFrame(raw) })
}

// SetConnected records the transport state; safe from any goroutine
func (c *Client) SetConnected(up bool) {
	c.loop.Post(func() {
		c.connected = up
		c.markDirty()
	})
}

// Send implements ports.Sender for the composer
func (c *Client) Send(v any) error {
	if c.transport == nil {
		return domain.ErrNotConnected
	}
	return c.transport.Send(v)
}

// OnConfirm sets how confirmations are shown. Without one, every
// confirmation is declined.
func (c *Client) OnConfirm(fn ConfirmFunc) {
	c.mu.Lock()
	c.confirm = fn
	c.mu.Unlock()
}

// Confirm implements ports.Confirmer. done runs on the loop.
func (c *Client) Confirm(prompt string, done func(bool)) {
	c.mu.Lock()
	fn := c.confirm
	c.mu.Unlock()
	if fn == nil {
		done(false)
		return
	}
	fn(prompt, func(ok bool) {
		c.loop.Post(func() { done(ok) })
	})
}

// Post queues fn to run on the loop with the composer
func (c *Client) Post(fn func(*composer.Composer)) {
	c.loop.Post(func() { fn(c.composer) })
}

// Do runs fn on the loop and waits for it
func (c *Client) Do(ctx context.Context, fn func(*composer.Composer)) error {
	return c.loop.Call(ctx, func() { fn(c.composer) })
}

// Subscribe registers fn for snapshots. fn runs on the loop and must not block.
func (c *Client) Subscribe(fn func(Snapshot)) {
	c.loop.Post(func() {
		c.listeners = append(c.listeners, fn)
		if c.hasSnapshot {
			fn(c.last)
		}
	})
}

// Sessions returns the session tracker
func (c *Client) Sessions() *conversation.Sessions { return c.sessions }

func (c *Client) notify(ev protocol.Event) {
	if c.opts.Notify != nil {
		c.opts.Notify(ev)
	}
}

// markDirty schedules one publish for however many changes happen in this task
func (c *Client) markDirty() {
	if c.dirty {
		return
	}
	c.dirty = true
	c.loop.Post(c.publish)
}

func (c *Client) publish() {
	c.dirty = false
	snap := Snapshot{
		Composer:     c.composer.View(),
		Connected:    c.connected,
		Conversation: c.state.Snapshot(),
	}
	if c.hasSnapshot {
		c.alert(c.last, snap)
	}
	c.last = snap
	c.hasSnapshot = true
	for _, fn := range c.listeners {
		fn(snap)
	}
}

// alert plays a sound when a turn ends or the agent starts waiting on a permission
func (c *Client) alert(prev, next Snapshot) {
	if c.opts.Alerter == nil {
		return
	}
	var a sound.Alert
	switch {
	case len(next.Conversation.PendingPermissions) > len(prev.Conversation.PendingPermissions):
		a = sound.AlertPermission
	case prev.Conversation.IsLoading && !next.Conversation.IsLoading:
		a = sound.AlertDone
		if n := len(next.Conversation.Messages); n > 0 && next.Conversation.Messages[n-1].Kind == domain.KindError {
			a = sound.AlertError
		}
	default:
		return
	}
	if err := c.opts.Alerter.Play(a); err != nil {
		logging.Logger.Debug("Failed to play alert", "alert", a, "error", err)
	}
}
