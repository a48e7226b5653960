package domain

import (
	"fmt"
	"strings"
	"time"
)

// TemporarySessionPrefix marks locally minted placeholder session ids
const TemporarySessionPrefix = "new-session-"

// IdentityState is the phase of a session id's life
type IdentityState int

const (
	IdentityTemporary IdentityState = iota
	IdentityPending
	IdentityDurable
)

func (s IdentityState) String() string {
	switch s {
	case IdentityPending:
		return "pending"
	case IdentityDurable:
		return "durable"
	}
	return "temporary"
}

// SessionIdentity is the id of the session in view plus how far it got
type SessionIdentity struct {
	ID    string
	State IdentityState
}

// PendingViewSession tracks a session the user started that the backend has not named yet
type PendingViewSession struct {
	SessionID string
	StartedAt time.Time
}

// IsTemporarySessionID reports whether id is a local placeholder
func IsTemporarySessionID(id string) bool {
	return strings.HasPrefix(id, TemporarySessionPrefix)
}

// NewTemporarySessionID mints a placeholder id for a session not yet known to the backend
func NewTemporarySessionID(now time.Time) string {
	return fmt.Sprintf("%s%d", TemporarySessionPrefix, now.UnixMilli())
}
