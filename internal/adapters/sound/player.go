// Package sound plays a short alert when the agent needs the user.
package sound

import (
	"fmt"
	"io"
	"os"
)

// Alert names what the user is being told about
type Alert string

const (
	AlertDone       Alert = "done"
	AlertError      Alert = "error"
	AlertPermission Alert = "permission"
)

// Player plays alerts. A disabled player is silent.
type Player struct {
	enabled bool
	out     io.Writer
}

// NewPlayer creates a player that rings on out when no system sound is available
func NewPlayer(enabled bool, out io.Writer) *Player {
	if out == nil {
		out = os.Stdout
	}
	return &Player{enabled: enabled, out: out}
}

// Play plays the sound for a
func (p *Player) Play(a Alert) error {
	if p == nil || !p.enabled {
		return nil
	}
	if playSystem(a) {
		return nil
	}
	return p.bell()
}

// bell outputs a terminal bell character as fallback
func (p *Player) bell() error {
	_, err := fmt.Fprint(p.out, "\a")
	return err
}
