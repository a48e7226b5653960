// Package composer owns the text the user is writing: slash-command and
// skill detection, file mentions, image attachments, and the outbound half
// of the protocol (submit, abort, permission decisions). Like the router it
// runs on the event loop.
package composer

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/renato0307/conduit/internal/commands"
	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/eventloop"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/timer"
)

// QueryDebounce is how long typing must pause before the command menu re-filters
const QueryDebounce = 150 * time.Millisecond

// Options configures a Composer
type Options struct {
	Confirmer ports.Confirmer
	Exec      eventloop.Executor
	Files     ports.FileLister
	KV        ports.KVStore
	Lifecycle ports.SessionLifecycle
	Models    map[domain.Provider]string
	Now       func() time.Time
	// OnChange runs after any change to the composer's own state
	OnChange func()
	// OnOpenSettings runs when a command asks for the settings screen
	OnOpenSettings  func()
	Project         domain.Project
	Provider        domain.Provider
	Resolver        *commands.Resolver
	Scheduler       timer.Scheduler
	SendByCtrlEnter bool
	Sender          ports.Sender
	State           *conversation.Holder
	Uploader        ports.ImageUploader
}

type commandMenu struct {
	items    []domain.SlashCommand
	open     bool
	query    string
	selected int
}

type fileMenu struct {
	items    []string
	open     bool
	selected int
}

// Composer is the input state machine. It is not safe for concurrent use.
type Composer struct {
	opts Options

	attachments    []domain.Attachment
	caret          int
	files          fileMenu
	imageErrors    map[string]string
	insertedSkills map[string]domain.SlashCommand
	latest         Latest[string]
	menu           commandMenu
	modeSessionID  string
	multiline      bool
	permissionMode domain.PermissionMode
	querySlot      *timer.Slot
	skillInfo      *SkillInfo
	text           []rune
	thinking       domain.ThinkingMode
	uploading      bool
}

// New creates a composer seeded with the project's saved draft
func New(opts Options) *Composer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Exec == nil {
		opts.Exec = eventloop.Inline{}
	}
	if opts.Provider == "" {
		opts.Provider = domain.ProviderClaude
	}

	c := &Composer{
		opts:           opts,
		imageErrors:    map[string]string{},
		insertedSkills: map[string]domain.SlashCommand{},
		permissionMode: domain.PermissionDefault,
		querySlot:      timer.NewSlot(opts.Scheduler),
		thinking:       domain.ThinkingNone,
	}
	c.loadDraft()
	return c
}

func (c *Composer) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

func (c *Composer) kvGet(key string, dst any) bool {
	if c.opts.KV == nil {
		return false
	}
	ok, err := c.opts.KV.Get(context.Background(), key, dst)
	if err != nil {
		logging.Logger.Warn("Failed to read key", "key", key, "error", err)
		return false
	}
	return ok
}

func (c *Composer) kvSet(key string, value any) {
	if c.opts.KV == nil {
		return
	}
	if err := c.opts.KV.Set(context.Background(), key, value); err != nil {
		logging.Logger.Warn("Failed to write key", "key", key, "error", err)
	}
}

func (c *Composer) kvRemove(key string) {
	if c.opts.KV == nil {
		return
	}
	if err := c.opts.KV.Remove(context.Background(), key); err != nil {
		logging.Logger.Warn("Failed to remove key", "key", key, "error", err)
	}
}

func (c *Composer) loadDraft() {
	var draft string
	c.kvGet(ports.DraftKey(c.opts.Project.Name), &draft)
	c.text = []rune(draft)
	c.caret = len(c.text)
	c.latest.Set(draft)
}

// Project returns the project the composer writes into
func (c *Composer) Project() domain.Project { return c.opts.Project }

// SetProject switches projects and loads that project's draft
func (c *Composer) SetProject(p domain.Project) {
	c.opts.Project = p
	c.reset()
	c.loadDraft()
	c.LoadCommands(false)
	c.changed()
}

// Provider returns the provider turns are sent to
func (c *Composer) Provider() domain.Provider { return c.opts.Provider }

// SetProvider switches providers, remembers the choice and reloads commands
func (c *Composer) SetProvider(p domain.Provider) {
	if p == c.opts.Provider {
		return
	}
	c.opts.Provider = p
	c.kvSet(ports.KeySelectedProvider, string(p))
	if !slices.Contains(domain.PermissionModes(p), c.permissionMode) {
		c.permissionMode = domain.PermissionDefault
	}
	c.closeMenus()
	c.LoadCommands(false)
	c.changed()
}

// Model returns the model used with the current provider
func (c *Composer) Model() string {
	return c.opts.Models[c.opts.Provider]
}

// LoadCommands fetches the command catalog off the loop
func (c *Composer) LoadCommands(forceReloadSkills bool) {
	if c.opts.Resolver == nil {
		return
	}
	project, provider := c.opts.Project, c.opts.Provider
	eventloop.Await(c.opts.Exec, func() (struct{}, error) {
		return struct{}{}, c.opts.Resolver.Load(context.Background(), project, provider, forceReloadSkills)
	}, func(_ struct{}, err error) {
		if err != nil {
			logging.Logger.Warn("Failed to load commands", "provider", provider, "error", err)
			return
		}
		if c.menu.open {
			c.applyQuery(c.menu.query)
		}
		c.changed()
	})
}

// Text returns the buffer
func (c *Composer) Text() string { return string(c.text) }

// Caret returns the caret position in runes
func (c *Composer) Caret() int { return c.caret }

// SetInput replaces the buffer and caret
func (c *Composer) SetInput(text string, caret int) {
	c.text = []rune(text)
	c.caret = max(0, min(caret, len(c.text)))
	c.edited()
}

// InsertText types s at the caret
func (c *Composer) InsertText(s string) {
	r := []rune(s)
	out := make([]rune, 0, len(c.text)+len(r))
	out = append(out, c.text[:c.caret]...)
	out = append(out, r...)
	out = append(out, c.text[c.caret:]...)
	c.text = out
	c.caret += len(r)
	c.edited()
}

// Backspace deletes the rune before the caret
func (c *Composer) Backspace() {
	if c.caret == 0 {
		return
	}
	c.text = slices.Delete(c.text, c.caret-1, c.caret)
	c.caret--
	c.edited()
}

// Delete deletes the rune after the caret
func (c *Composer) Delete() {
	if c.caret >= len(c.text) {
		return
	}
	c.text = slices.Delete(c.text, c.caret, c.caret+1)
	c.edited()
}

// MoveCaret moves the caret by delta runes
func (c *Composer) MoveCaret(delta int) {
	c.SetCaret(c.caret + delta)
}

// SetCaret places the caret, re-evaluating menus at the new position
func (c *Composer) SetCaret(pos int) {
	pos = max(0, min(pos, len(c.text)))
	if pos == c.caret {
		return
	}
	c.caret = pos
	c.detect()
	c.changed()
}

// edited runs after every buffer change
func (c *Composer) edited() {
	text := string(c.text)
	c.latest.Set(text)
	c.saveDraft(text)
	c.pruneSkills()
	c.detect()
	c.changed()
}

func (c *Composer) saveDraft(text string) {
	key := ports.DraftKey(c.opts.Project.Name)
	if text == "" {
		c.kvRemove(key)
		return
	}
	c.kvSet(key, text)
}

// detect opens or closes the command and file menus for the caret position
func (c *Composer) detect() {
	if tok, ok := commands.FindSlashToken(c.text, c.caret); ok {
		c.files = fileMenu{}
		c.openCommandMenu(tok.Query)
		return
	}
	c.closeCommandMenu()

	if tok, ok := commands.FindMentionToken(c.text, c.caret); ok {
		c.openFileMenu(tok.Query)
		return
	}
	c.files = fileMenu{}
}

func (c *Composer) openCommandMenu(query string) {
	if !c.menu.open {
		c.menu = commandMenu{open: true}
		c.applyQuery("")
	}
	if query == c.menu.query {
		c.querySlot.Cancel()
		return
	}
	c.querySlot.Arm(QueryDebounce, func() {
		c.applyQuery(query)
		c.changed()
	})
}

func (c *Composer) applyQuery(query string) {
	c.menu.query = query
	c.menu.selected = 0
	if c.opts.Resolver == nil {
		c.menu.items = nil
		return
	}
	c.menu.items = c.opts.Resolver.Search(query)
}

func (c *Composer) closeCommandMenu() {
	c.querySlot.Cancel()
	c.menu = commandMenu{}
}

func (c *Composer) closeMenus() {
	c.closeCommandMenu()
	c.files = fileMenu{}
}

// reset clears everything tied to the text being composed
func (c *Composer) reset() {
	c.text = nil
	c.caret = 0
	c.latest.Set("")
	c.attachments = nil
	c.imageErrors = map[string]string{}
	c.skillInfo = nil
	c.insertedSkills = map[string]domain.SlashCommand{}
	c.thinking = domain.ThinkingNone
	c.closeMenus()
}

// clearInput empties the buffer and its draft after a send
func (c *Composer) clearInput() {
	c.reset()
	c.saveDraft("")
}

// SelectCommand inserts cmd at the /token under the caret
func (c *Composer) SelectCommand(cmd domain.SlashCommand) {
	text, caret, ok := commands.InsertCommand(c.text, c.caret, cmd)
	if !ok {
		c.closeCommandMenu()
		c.changed()
		return
	}
	if cmd.IsSkill() {
		c.insertedSkills[cmd.Name] = cmd
	}
	c.text = text
	c.caret = caret
	c.edited()
	c.closeCommandMenu()
	c.changed()
}

// FilteredCommands returns the command menu's current entries
func (c *Composer) FilteredCommands() []domain.SlashCommand {
	return slices.Clone(c.menu.items)
}

// CommandMenuOpen reports whether the command menu is showing
func (c *Composer) CommandMenuOpen() bool { return c.menu.open }

// SetMultiline makes Enter insert a newline instead of submitting
func (c *Composer) SetMultiline(on bool) {
	c.multiline = on
	c.changed()
}

// SetThinkingMode sets the effort requested for the next turn
func (c *Composer) SetThinkingMode(m domain.ThinkingMode) {
	c.thinking = m
	c.changed()
}

// View is a copy of the composer state for rendering
type View struct {
	ArgumentHint    string
	Attachments     []string
	Caret           int
	CommandMenuOpen bool
	Commands        []domain.SlashCommand
	FileMenuOpen    bool
	FileSelected    int
	Files           []string
	Frequent        []domain.SlashCommand
	ImageErrors     map[string]string
	Multiline       bool
	PermissionMode  domain.PermissionMode
	Provider        domain.Provider
	Selected        int
	SkillInfo       *SkillInfo
	SkillSpans      []SkillSpan
	Text            string
	Thinking        domain.ThinkingMode
	Uploading       bool
}

// View returns the state to render
func (c *Composer) View() View {
	v := View{
		ArgumentHint:    c.ArgumentHint(),
		Caret:           c.caret,
		CommandMenuOpen: c.menu.open,
		Commands:        slices.Clone(c.menu.items),
		FileMenuOpen:    c.files.open,
		FileSelected:    c.files.selected,
		Files:           slices.Clone(c.files.items),
		ImageErrors:     maps.Clone(c.imageErrors),
		Multiline:       c.multiline,
		PermissionMode:  c.PermissionMode(),
		Provider:        c.opts.Provider,
		Selected:        c.menu.selected,
		SkillSpans:      c.SkillSpans(),
		Text:            string(c.text),
		Thinking:        c.thinking,
		Uploading:       c.uploading,
	}
	for _, a := range c.attachments {
		v.Attachments = append(v.Attachments, a.Name)
	}
	if c.opts.Resolver != nil {
		v.Frequent = c.opts.Resolver.Frequent()
	}
	if c.skillInfo != nil {
		info := *c.skillInfo
		v.SkillInfo = &info
	}
	return v
}
