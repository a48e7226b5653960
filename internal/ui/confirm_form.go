package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// ConfirmForm asks a yes/no question, typically before running a custom
// command that executes shell or reads files
type ConfirmForm struct {
	Completed bool
	confirmed bool
	form      *huh.Form
}

// NewConfirmForm creates a form asking prompt
func NewConfirmForm(prompt string) *ConfirmForm {
	cf := &ConfirmForm{}
	cf.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Run").
				Negative("Cancel").
				Value(&cf.confirmed),
		),
	)
	return cf
}

func (cf *ConfirmForm) Init() tea.Cmd {
	return cf.form.Init()
}

func (cf *ConfirmForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" || keyMsg.String() == "ctrl+c" {
			cf.confirmed = false
			cf.Completed = true
			return cf, nil
		}
	}

	form, cmd := cf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		cf.form = f
	}

	switch cf.form.State {
	case huh.StateCompleted:
		cf.Completed = true
		return cf, nil
	case huh.StateAborted:
		cf.confirmed = false
		cf.Completed = true
		return cf, nil
	}
	return cf, cmd
}

func (cf *ConfirmForm) View() string {
	return cf.form.View()
}

// Confirmed reports the answer once Completed
func (cf *ConfirmForm) Confirmed() bool {
	return cf.Completed && cf.confirmed
}
