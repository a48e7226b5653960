package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ui"
)

// ChatCmd starts the chat TUI
type ChatCmd struct {
	Dev             bool `help:"Enable development mode (shows version info in dialogs)"`
	ErrorClearDelay int  `help:"Seconds before error messages auto-clear" default:"8"`
	ShowTimestamps  bool `help:"Show message timestamps" default:"false"`
}

// uiOptions validates the key bindings in settings and builds the UI options
func uiOptions(settings *config.Settings, dev bool, errorClearDelay int, showTimestamps bool) (ui.Options, error) {
	if settings.Keys != nil {
		if err := settings.Keys.Validate(ui.GetValidKeyNames()); err != nil {
			return ui.Options{}, fmt.Errorf("invalid key bindings in settings.json: %w", err)
		}
		logging.Logger.Debug("Custom key bindings loaded and validated")
	}

	var providers []domain.Provider
	for _, name := range settings.Providers {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return ui.Options{}, fmt.Errorf("invalid providers in settings.json: %w", err)
		}
		providers = append(providers, p)
	}

	if !showTimestamps {
		showTimestamps = config.Bool(settings.ShowTimestamps, false)
	}
	return ui.Options{
		DevMode:         dev,
		ErrorClearDelay: time.Duration(errorClearDelay) * time.Second,
		Keys:            settings.Keys,
		Providers:       providers,
		ShowTimestamps:  showTimestamps,
	}, nil
}

// Run executes the TUI
func (r *ChatCmd) Run(cli *CLI) error {
	opts, err := uiOptions(cli.settings, r.Dev, r.ErrorClearDelay, r.ShowTimestamps)
	if err != nil {
		return err
	}
	project, err := cli.project()
	if err != nil {
		return err
	}

	logging.Logger.Info("Starting conduit chat", "project", project.FullPath, "server", cli.Server)

	c, err := cli.Container.NewClient(ClientConfig{
		Bell:      os.Stdout,
		Project:   project,
		Provider:  cli.provider(),
		Reconnect: true,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	p := tea.NewProgram(
		ui.NewModel(ctx, c, opts),
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
		tea.WithContext(ctx),
	)

	logging.Logger.Info("Starting TUI program")
	_, runErr := p.Run()
	cancel()
	if err := <-done; err != nil {
		logging.Logger.Warn("Client stopped with error", "error", err)
	}
	if runErr != nil {
		logging.Logger.Error("TUI program error", "error", runErr)
		return fmt.Errorf("error running program: %w", runErr)
	}

	logging.Logger.Info("TUI program exited normally")
	return nil
}
