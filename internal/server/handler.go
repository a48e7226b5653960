package server

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ui"
)

// teaHandler builds a client and a chat model for each SSH session
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	sessionID := fmt.Sprintf("%s@%s", sess.User(), sess.RemoteAddr().String())

	logging.Logger.Info("New SSH session",
		"session_id", sessionID,
		"user", sess.User(),
		"term", pty.Term,
		"window", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

	c, release, err := s.opts.NewClient(sess)
	if err != nil {
		logging.Logger.Error("Failed to create client for SSH session", "error", err, "session_id", sessionID)
		return errorModel{err}, nil
	}

	// The session context ends once the program exits and the connection closes
	ctx := sess.Context()
	start := time.Now()
	go func() {
		if err := c.Run(ctx); err != nil {
			logging.Logger.Error("Client stopped", "error", err, "session_id", sessionID)
		}
		if release != nil {
			release()
		}
		logging.Logger.Info("SSH session ended",
			"session_id", sessionID,
			"duration", time.Since(start).String())
	}()

	return ui.NewModel(ctx, c, s.opts.UI), []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
}

// errorModel is a simple model that displays an error
type errorModel struct {
	err error
}

func (e errorModel) Init() tea.Cmd {
	return tea.Quit
}

func (e errorModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	return e, tea.Quit
}

func (e errorModel) View() string {
	return fmt.Sprintf("Error: %v\n", e.err)
}
