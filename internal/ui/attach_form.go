package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// AttachForm asks for the path of an image to queue with the next message
type AttachForm struct {
	Completed bool
	cancelled bool
	form      *huh.Form
	path      string
}

// NewAttachForm creates the image path prompt
func NewAttachForm() *AttachForm {
	af := &AttachForm{}
	af.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Attach image").
				Description("PNG, JPEG, GIF or WebP, up to 5MB").
				Placeholder("~/Pictures/screenshot.png").
				Value(&af.path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("path is required")
					}
					return nil
				}),
		),
	)
	return af
}

func (af *AttachForm) Init() tea.Cmd {
	return af.form.Init()
}

func (af *AttachForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		af.cancelled = true
		af.Completed = true
		return af, nil
	}

	form, cmd := af.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		af.form = f
	}

	switch af.form.State {
	case huh.StateCompleted:
		af.Completed = true
		return af, nil
	case huh.StateAborted:
		af.cancelled = true
		af.Completed = true
		return af, nil
	}
	return af, cmd
}

func (af *AttachForm) View() string {
	return af.form.View()
}

// Path returns the entered path, empty when the form was cancelled
func (af *AttachForm) Path() string {
	if af.cancelled {
		return ""
	}
	return strings.TrimSpace(af.path)
}
