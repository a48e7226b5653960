package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/conduit/internal/composer"
	"github.com/renato0307/conduit/internal/domain"
)

// toKeyEvent translates a terminal key into the composer's key model.
// Terminals report ctrl+enter as ctrl+j, so that is where Ctrl comes from.
func toKeyEvent(msg tea.KeyMsg) (composer.KeyEvent, bool) {
	ev := composer.KeyEvent{Alt: msg.Alt}
	switch msg.Type {
	case tea.KeyRunes:
		ev.Key = composer.KeyRunes
		ev.Runes = msg.Runes
	case tea.KeySpace:
		ev.Key = composer.KeyRunes
		ev.Runes = []rune{' '}
	case tea.KeyEnter:
		ev.Key = composer.KeyEnter
	case tea.KeyCtrlJ:
		ev.Key = composer.KeyEnter
		ev.Ctrl = true
	case tea.KeyBackspace:
		ev.Key = composer.KeyBackspace
	case tea.KeyDelete:
		ev.Key = composer.KeyDelete
	case tea.KeyUp:
		ev.Key = composer.KeyUp
	case tea.KeyDown:
		ev.Key = composer.KeyDown
	case tea.KeyLeft:
		ev.Key = composer.KeyLeft
	case tea.KeyRight:
		ev.Key = composer.KeyRight
	case tea.KeyHome, tea.KeyCtrlA:
		ev.Key = composer.KeyHome
	case tea.KeyEnd, tea.KeyCtrlE:
		ev.Key = composer.KeyEnd
	case tea.KeyTab:
		ev.Key = composer.KeyTab
	case tea.KeyShiftTab:
		ev.Key = composer.KeyTab
		ev.Shift = true
	case tea.KeyEsc:
		ev.Key = composer.KeyEsc
	default:
		return composer.KeyEvent{}, false
	}
	return ev, true
}

var thinkingCycle = []domain.ThinkingMode{
	domain.ThinkingNone,
	domain.ThinkingThink,
	domain.ThinkingThinkHard,
	domain.ThinkingThinkHarder,
	domain.ThinkingUltrathink,
}

func nextThinking(m domain.ThinkingMode) domain.ThinkingMode {
	for i, t := range thinkingCycle {
		if t == m {
			return thinkingCycle[(i+1)%len(thinkingCycle)]
		}
	}
	return domain.ThinkingThink
}

// nextProvider cycles through enabled, or every provider when enabled is empty
func nextProvider(p domain.Provider, enabled []domain.Provider) domain.Provider {
	cycle := enabled
	if len(cycle) == 0 {
		cycle = domain.Providers
	}
	for i, q := range cycle {
		if q == p {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
