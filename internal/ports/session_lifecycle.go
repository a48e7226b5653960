package ports

// SessionLifecycle receives session bookkeeping signals from the router and composer
type SessionLifecycle interface {
	MarkActive(sessionID string)
	MarkInactive(sessionID string)
	MarkNotProcessing(sessionID string)
	MarkProcessing(sessionID string)
	// NavigateTo asks the host to switch the view to sessionID
	NavigateTo(sessionID string)
	// ReplaceTemporary swaps the placeholder session for the id the backend announced
	ReplaceTemporary(sessionID string)
}
