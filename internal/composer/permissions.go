package composer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
	"github.com/renato0307/conduit/internal/protocol"
)

// PermissionMode returns the mode for the session in view, loading the one
// saved for it when the view changed
func (c *Composer) PermissionMode() domain.PermissionMode {
	id := c.opts.State.ActiveViewSessionID()
	if id != c.modeSessionID {
		c.modeSessionID = id
		mode := domain.PermissionDefault
		if id != "" {
			var saved string
			if c.kvGet(ports.PermissionModeKey(id), &saved) && saved != "" {
				mode = domain.PermissionMode(saved)
			}
		}
		if !slices.Contains(domain.PermissionModes(c.opts.Provider), mode) {
			mode = domain.PermissionDefault
		}
		c.permissionMode = mode
	}
	return c.permissionMode
}

// CyclePermissionMode advances to the next mode and saves it for the session in view
func (c *Composer) CyclePermissionMode() domain.PermissionMode {
	mode := domain.NextPermissionMode(c.opts.Provider, c.PermissionMode())
	c.permissionMode = mode
	if id := c.modeSessionID; id != "" {
		c.kvSet(ports.PermissionModeKey(id), string(mode))
	}
	c.changed()
	return mode
}

// Decide sends decision for each request id, then drops those requests. The
// status indicator clears once nothing is waiting.
func (c *Composer) Decide(requestIDs []string, decision domain.PermissionDecision) error {
	if len(requestIDs) == 0 {
		return nil
	}

	var errs []error
	for _, id := range requestIDs {
		if err := c.opts.Sender.Send(protocol.NewPermissionResponse(id, decision)); err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", id, err))
		}
	}
	logging.Logger.Info("Permission decision sent", "requests", len(requestIDs), "allow", decision.Allow)

	state := c.opts.State
	state.RemovePermissions(requestIDs...)
	if len(state.PendingPermissions()) == 0 {
		state.SetStatus(nil)
	}
	return errors.Join(errs...)
}

// GrantToolPermission adds entry to the provider's allowed tools so future
// calls run without asking. The outcome is recorded against toolID; nothing
// is sent to the backend.
func (c *Composer) GrantToolPermission(toolID, entry string) domain.PermissionGrant {
	grant := c.grant(entry)
	c.opts.State.SetGrant(toolID, grant)
	if grant.Err != nil {
		logging.Logger.Warn("Failed to grant tool permission", "tool_id", toolID, "entry", entry, "error", grant.Err)
	}
	return grant
}

func (c *Composer) grant(entry string) domain.PermissionGrant {
	if entry == "" {
		return domain.PermissionGrant{Err: errors.New("empty permission entry"), State: domain.GrantError}
	}
	if c.opts.KV == nil {
		return domain.PermissionGrant{Entry: entry, Err: errors.New("no settings store"), State: domain.GrantError}
	}

	ctx := context.Background()
	key := ports.ToolsSettingsKey(string(c.opts.Provider))
	var settings domain.ToolsSettings
	if _, err := c.opts.KV.Get(ctx, key, &settings); err != nil {
		return domain.PermissionGrant{Entry: entry, Err: err, State: domain.GrantError}
	}

	if !slices.Contains(settings.AllowedTools, entry) {
		settings.AllowedTools = append(settings.AllowedTools, entry)
	}
	settings.DisallowedTools = slices.DeleteFunc(settings.DisallowedTools, func(t string) bool { return t == entry })

	if err := c.opts.KV.Set(ctx, key, settings); err != nil {
		return domain.PermissionGrant{Entry: entry, Err: err, State: domain.GrantError}
	}
	return domain.PermissionGrant{Entry: entry, State: domain.GrantGranted}
}
