package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// clearErrorMsg is a message sent after the error clear delay to trigger error clearing.
type clearErrorMsg struct {
	seq int
}

// ErrorManager handles error display and auto-clearing functionality.
type ErrorManager struct {
	currentError    error
	errorClearDelay time.Duration
	seq             int
}

// NewErrorManager creates a new ErrorManager with the specified auto-clear delay.
func NewErrorManager(errorClearDelay time.Duration) *ErrorManager {
	return &ErrorManager{
		errorClearDelay: errorClearDelay,
	}
}

// SetError sets the current error and returns the command that clears it later.
// A newer error restarts the delay.
func (em *ErrorManager) SetError(err error) tea.Cmd {
	em.currentError = err
	em.seq++
	seq := em.seq
	return tea.Tick(em.errorClearDelay, func(time.Time) tea.Msg {
		return clearErrorMsg{seq: seq}
	})
}

// Clear drops the error if msg belongs to the latest one
func (em *ErrorManager) Clear(msg clearErrorMsg) {
	if msg.seq == em.seq {
		em.currentError = nil
	}
}

// GetError returns the current error.
func (em *ErrorManager) GetError() error {
	return em.currentError
}

// HasError returns true if there is a current error.
func (em *ErrorManager) HasError() bool {
	return em.currentError != nil
}
