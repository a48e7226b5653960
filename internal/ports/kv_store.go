package ports

import "context"

// KVStore is the persisted key-value collaborator. Values are JSON-serializable.
type KVStore interface {
	// Get decodes the value stored at key into dst. It reports false when the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Remove(ctx context.Context, key string) error
	Set(ctx context.Context, key string, value any) error
}

// Keys shared by the router and the composer
const (
	KeyCursorSessionID  = "cursorSessionId"
	KeyPendingSessionID = "pendingSessionId"
	KeySelectedProvider = "selected-provider"
	KeySendByCtrlEnter  = "sendByCtrlEnter"
)

// DraftKey is where the unsent input of a project is kept
func DraftKey(project string) string {
	return "draft_input_" + project
}

// CommandHistoryKey is where command usage counts of a project and provider are kept
func CommandHistoryKey(project, provider string) string {
	return "command_history_" + project + "_" + provider
}

// PermissionModeKey is where the permission mode chosen for a session is kept
func PermissionModeKey(sessionID string) string {
	return "permissionMode-" + sessionID
}

// ToolsSettingsKey is where a provider's tool allow/deny lists are kept
func ToolsSettingsKey(provider string) string {
	return provider + "-settings"
}
