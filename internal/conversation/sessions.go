package conversation

import (
	"maps"
	"slices"
	"sync"

	"github.com/renato0307/conduit/internal/logging"
)

// Sessions tracks which sessions are active and processing across the
// connection, including sessions not in view. It implements ports.SessionLifecycle.
type Sessions struct {
	holder *Holder

	mu         sync.RWMutex
	active     map[string]bool
	onNavigate func(sessionID string)
	processing map[string]bool
}

// NewSessions creates a tracker that updates holder on navigation
func NewSessions(holder *Holder) *Sessions {
	return &Sessions{
		holder:     holder,
		active:     map[string]bool{},
		processing: map[string]bool{},
	}
}

// OnNavigate registers a hook called after the view switches sessions
func (s *Sessions) OnNavigate(fn func(sessionID string)) {
	s.onNavigate = fn
}

// MarkActive records that sessionID has a turn in flight
func (s *Sessions) MarkActive(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	s.active[sessionID] = true
	s.mu.Unlock()
}

// MarkInactive records that sessionID finished its turn
func (s *Sessions) MarkInactive(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()
}

// MarkProcessing records that the backend is working on sessionID
func (s *Sessions) MarkProcessing(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	s.processing[sessionID] = true
	s.mu.Unlock()
}

// MarkNotProcessing records that the backend stopped working on sessionID
func (s *Sessions) MarkNotProcessing(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	delete(s.processing, sessionID)
	s.mu.Unlock()
}

// NavigateTo switches the view to sessionID
func (s *Sessions) NavigateTo(sessionID string) {
	logging.Logger.Info("Navigating to session", "session_id", sessionID)
	s.holder.SelectSession(sessionID)
	if s.onNavigate != nil {
		s.onNavigate(sessionID)
	}
}

// ReplaceTemporary moves the bookkeeping of the placeholder session onto sessionID
func (s *Sessions) ReplaceTemporary(sessionID string) {
	tempID := s.holder.TemporaryID()
	if tempID == "" {
		return
	}
	logging.Logger.Debug("Replacing temporary session", "temporary_id", tempID, "session_id", sessionID)

	s.mu.Lock()
	if s.active[tempID] {
		delete(s.active, tempID)
		s.active[sessionID] = true
	}
	if s.processing[tempID] {
		delete(s.processing, tempID)
		s.processing[sessionID] = true
	}
	s.mu.Unlock()

	s.holder.SetTemporaryID("")
}

// IsActive reports whether sessionID has a turn in flight
func (s *Sessions) IsActive(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[sessionID]
}

// IsProcessing reports whether the backend is working on sessionID
func (s *Sessions) IsProcessing(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing[sessionID]
}

// Active returns the active session ids, sorted
func (s *Sessions) Active() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.active))
}

// Processing returns the processing session ids, sorted
func (s *Sessions) Processing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.processing))
}
