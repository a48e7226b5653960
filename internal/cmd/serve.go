package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/ssh"

	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/server"
)

// ServeCmd hosts the chat over SSH
type ServeCmd struct {
	AuthorizedKeys  string `help:"authorized_keys file listing the keys allowed in (defaults to ~/.ssh/authorized_keys)" type:"path"`
	Dev             bool   `help:"Enable development mode (shows version info in dialogs)"`
	ErrorClearDelay int    `help:"Seconds before error messages auto-clear" default:"8"`
	Host            string `help:"Host to bind to"`
	Port            int    `help:"Port to listen on"`
	ShowTimestamps  bool   `help:"Show message timestamps" default:"false"`
}

// Run executes the serve command
func (s *ServeCmd) Run(cli *CLI) error {
	settings := cli.settings
	if s.Host == "" {
		s.Host = resolve("", "CONDUIT_SSH_HOST", settings.SSHHost, config.DefaultSSHHost)
	}
	if s.Port == 0 {
		s.Port = config.Int(settings.SSHPort, config.DefaultSSHPort)
	}
	if s.AuthorizedKeys == "" {
		s.AuthorizedKeys = settings.SSHAuthorizedKeys
	}
	if s.AuthorizedKeys == "" {
		s.AuthorizedKeys = config.ExpandPath("~/.ssh/authorized_keys")
	}

	opts, err := uiOptions(settings, s.Dev, s.ErrorClearDelay, s.ShowTimestamps)
	if err != nil {
		return err
	}
	project, err := cli.project()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Options{
		AuthorizedKeys: s.AuthorizedKeys,
		Host:           s.Host,
		NewClient: func(sess ssh.Session) (*client.Client, func(), error) {
			c, err := cli.Container.NewClient(ClientConfig{
				Bell:      sess,
				Project:   project,
				Provider:  cli.provider(),
				Reconnect: true,
			})
			return c, nil, err
		},
		Port:   s.Port,
		SSHDir: config.GetSSHDir(),
		UI:     opts,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Logger.Info("Starting conduit SSH server", "addr", srv.Addr(), "project", project.FullPath)
	fmt.Printf("Serving conduit on ssh://%s\n", srv.Addr())
	return srv.Start(ctx)
}
