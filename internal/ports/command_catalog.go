package ports

import (
	"context"

	"github.com/renato0307/conduit/internal/domain"
)

// ListCommandsRequest asks the listing collaborator for a provider's catalog
type ListCommandsRequest struct {
	ForceReloadSkills bool            `json:"forceReloadSkills"`
	IncludeSkills     bool            `json:"includeSkills"`
	ProjectPath       string          `json:"projectPath"`
	Provider          domain.Provider `json:"provider"`
}

// CommandListing is the listing collaborator's answer
type CommandListing struct {
	BuiltIn []domain.SlashCommand `json:"builtIn"`
	Custom  []domain.SlashCommand `json:"custom"`
	Skills  []domain.SlashCommand `json:"skills"`
}

// ExecutionContext describes where a command runs
type ExecutionContext struct {
	Model       string             `json:"model"`
	ProjectName string             `json:"projectName"`
	ProjectPath string             `json:"projectPath"`
	Provider    domain.Provider    `json:"provider"`
	SessionID   string             `json:"sessionId"`
	TokenUsage  domain.TokenBudget `json:"tokenUsage,omitempty"`
}

// ExecuteCommandRequest asks the execution collaborator to run a command
type ExecuteCommandRequest struct {
	Args        []string         `json:"args"`
	CommandName string           `json:"commandName"`
	CommandPath string           `json:"commandPath,omitempty"`
	Context     ExecutionContext `json:"context"`
}

// CommandCatalog lists and executes slash commands
type CommandCatalog interface {
	Execute(ctx context.Context, req ExecuteCommandRequest) (*domain.CommandResult, error)
	List(ctx context.Context, req ListCommandsRequest) (*CommandListing, error)
}
