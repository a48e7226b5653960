package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
)

// SendCmd sends one message without the TUI
type SendCmd struct {
	Images  []string      `name:"image" short:"i" help:"Image to attach (repeatable)" type:"existingfile"`
	Message string        `arg:"" help:"Message to send (use - to read from stdin)"`
	Timeout time.Duration `help:"How long to wait for the agent" default:"10m"`
	Yes     bool          `help:"Allow every tool call and confirmation instead of denying them" short:"y"`
}

// latestSnapshot keeps the newest snapshot for a waiting reader
type latestSnapshot struct {
	mu     sync.Mutex
	snap   client.Snapshot
	signal chan struct{}
}

func newLatestSnapshot() *latestSnapshot {
	return &latestSnapshot{signal: make(chan struct{}, 1)}
}

func (l *latestSnapshot) put(s client.Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// until blocks until cond holds for a snapshot or ctx ends
func (l *latestSnapshot) until(ctx context.Context, cond func(client.Snapshot) bool) (client.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return client.Snapshot{}, ctx.Err()
		case <-l.signal:
		}
		l.mu.Lock()
		s := l.snap
		l.mu.Unlock()
		if cond(s) {
			return s, nil
		}
	}
}

// Run sends the message and prints the assistant's reply
func (s *SendCmd) Run(cli *CLI) error {
	text := s.Message
	if text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("message is empty")
	}

	images, err := composer.ReadImages(s.Images)
	if err != nil {
		return err
	}

	project, err := cli.project()
	if err != nil {
		return err
	}
	c, err := cli.Container.NewClient(ClientConfig{
		Bell:      io.Discard,
		Project:   project,
		Provider:  cli.provider(),
		Reconnect: true,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	c.OnConfirm(func(prompt string, answer func(bool)) {
		logging.Logger.Info("Answering confirmation", "prompt", prompt, "allow", s.Yes)
		answer(s.Yes)
	})

	latest := newLatestSnapshot()
	decided := make(map[string]bool)
	c.Subscribe(func(snap client.Snapshot) {
		latest.put(snap)
		s.decide(c, snap.Conversation.PendingPermissions, decided)
	})

	ready, err := latest.until(ctx, func(snap client.Snapshot) bool { return snap.Connected })
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", cli.Server, err)
	}
	start := len(ready.Conversation.Messages)

	var queueErr error
	if err := c.Do(ctx, func(cp *composer.Composer) {
		if queueErr = queueImages(cp, images); queueErr != nil {
			return
		}
		cp.SetInput(text, len([]rune(text)))
		cp.Submit()
	}); err != nil {
		return err
	}
	if queueErr != nil {
		return queueErr
	}

	final, err := latest.until(ctx, func(snap client.Snapshot) bool {
		return !snap.Conversation.IsLoading && len(snap.Conversation.Messages) > start
	})
	if err != nil {
		return fmt.Errorf("no answer from the agent: %w", err)
	}
	return printReply(os.Stdout, final.Conversation.Messages[start:])
}

// queueImages adds images to the composer and fails if any was refused
func queueImages(cp *composer.Composer, images []domain.Attachment) error {
	if len(images) == 0 {
		return nil
	}
	cp.AddFiles(images)
	rejected := cp.ImageErrors()
	var errs []error
	for _, img := range images {
		if msg, ok := rejected[img.Name]; ok {
			errs = append(errs, fmt.Errorf("%s: %s", img.Name, msg))
		}
	}
	return errors.Join(errs...)
}

// decide answers every new permission request. It runs on the client loop.
func (s *SendCmd) decide(c *client.Client, pending []domain.PendingPermissionRequest, decided map[string]bool) {
	var ids []string
	for _, p := range pending {
		if decided[p.RequestID] {
			continue
		}
		decided[p.RequestID] = true
		ids = append(ids, p.RequestID)
		fmt.Fprintf(os.Stderr, "%s requested %s: allowed=%t\n", p.ToolName, string(p.Input), s.Yes)
	}
	if len(ids) == 0 {
		return
	}
	c.Post(func(cp *composer.Composer) {
		if err := cp.Decide(ids, domain.PermissionDecision{Allow: s.Yes}); err != nil {
			logging.Logger.Warn("Failed to answer permission request", "error", err)
		}
	})
}

// printReply writes the assistant text of msgs to w and returns the last
// error message, if the turn ended in one
func printReply(w io.Writer, msgs []domain.ChatMessage) error {
	var failure error
	for _, m := range msgs {
		switch {
		case m.Kind == domain.KindError:
			failure = errors.New(m.Content)
		case m.Kind == domain.KindAssistant && !m.IsThinking && !m.IsToolUse && m.Content != "":
			fmt.Fprintln(w, m.Content)
			failure = nil
		}
	}
	return failure
}
