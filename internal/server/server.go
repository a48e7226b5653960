// Package server hosts the chat UI over SSH, one client per session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"

	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ui"
)

// ShutdownTimeout bounds how long open sessions get to finish on shutdown
const ShutdownTimeout = 30 * time.Second

// ClientFactory builds the client for one SSH session. release runs when
// the session ends.
type ClientFactory func(sess ssh.Session) (c *client.Client, release func(), err error)

// Options configures a Server
type Options struct {
	AuthorizedKeys string
	Host           string
	NewClient      ClientFactory
	Port           int
	SSHDir         string
	UI             ui.Options
}

// Server is the SSH front end for conduit
type Server struct {
	addr       string
	opts       Options
	wishServer *ssh.Server
}

// NewServer creates the SSH server. The host key is created under
// opts.SSHDir on first use.
func NewServer(opts Options) (*Server, error) {
	if opts.NewClient == nil {
		return nil, errors.New("server needs a client factory")
	}
	if err := os.MkdirAll(opts.SSHDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create SSH directory: %w", err)
	}

	s := &Server{
		addr: net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		opts: opts,
	}

	// Middleware executes in reverse order (last to first)
	wishServer, err := wish.NewServer(
		wish.WithAddress(s.addr),
		wish.WithHostKeyPath(filepath.Join(opts.SSHDir, "id_ed25519")),
		wish.WithPublicKeyAuth(s.authorize),
		wish.WithMiddleware(
			bubbletea.Middleware(s.teaHandler),
			activeterm.Middleware(),
			wishlogging.Middleware(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	s.wishServer = wishServer
	return s, nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() string { return s.addr }

// Start serves until ctx ends, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	logging.Logger.Info("Starting SSH server", "address", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.wishServer.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("SSH server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Info("Shutting down SSH server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.wishServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown SSH server: %w", err)
	}
	logging.Logger.Info("SSH server stopped")
	return nil
}
