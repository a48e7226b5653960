package ui

import (
	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/domain"
)

// Action messages. Key bindings and palette entries both produce these;
// Model handles them in handleAction.

// AbortMsg requests stopping the turn in view
type AbortMsg struct{}

// AttachImageMsg requests the image path prompt
type AttachImageMsg struct{}

// CycleProviderMsg requests switching to the next provider
type CycleProviderMsg struct{}

// CycleThinkingMsg requests the next thinking effort
type CycleThinkingMsg struct{}

// DecideMsg answers every pending permission request
type DecideMsg struct {
	Allow    bool
	Remember bool
}

// GrantToolMsg requests always allowing the tool of the latest tool call
// that has no grant yet
type GrantToolMsg struct{}

// QuitMsg requests quitting the application
type QuitMsg struct{}

// ReloadCommandsMsg requests a fresh command catalog, skills included
type ReloadCommandsMsg struct{}

// ShowHelpMsg requests showing the help screen
type ShowHelpMsg struct{}

// SkillInfoMsg requests the info popup for the skill under the caret
type SkillInfoMsg struct{}

// SkillUsageMsg requests inserting the open skill's usage example
type SkillUsageMsg struct{}

// ToggleMultilineMsg requests flipping what enter does
type ToggleMultilineMsg struct{}

// ToggleTimestampsMsg requests toggling timestamp display
type ToggleTimestampsMsg struct{}

// Messages from the client

// snapshotMsg carries a fresh client snapshot into the program
type snapshotMsg struct {
	snap client.Snapshot
}

// confirmMsg asks the user a yes/no question on behalf of the composer
type confirmMsg struct {
	answer func(bool)
	prompt string
}

// attachmentsReadMsg carries images read from disk, ready for the composer
type attachmentsReadMsg struct {
	files []domain.Attachment
}

// errMsg reports a failure to show in the error line
type errMsg struct {
	err error
}
