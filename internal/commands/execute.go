package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
)

// Built-in actions the execution collaborator may return
const (
	ActionClear  = "clear"
	ActionConfig = "config"
	ActionCost   = "cost"
	ActionHelp   = "help"
	ActionMemory = "memory"
	ActionModel  = "model"
	ActionRewind = "rewind"
	ActionStatus = "status"
)

// Outcome is the local effect of running a command
type Outcome struct {
	Action        string
	ClearMessages bool
	// Message is shown as an assistant message when not empty
	Message      string
	NeedsConfirm bool
	OpenSettings bool
	// Rewind is how many exchanges to drop from the end of the conversation
	Rewind int
	// Submit is sent as a new turn when not empty
	Submit string
}

// Execute runs cmd through the execution collaborator, records its use and
// maps the result to a local outcome
func (r *Resolver) Execute(ctx context.Context, cmd domain.SlashCommand, args []string, ec ports.ExecutionContext) (Outcome, error) {
	if args == nil {
		args = []string{}
	}
	res, err := r.catalog.Execute(ctx, ports.ExecuteCommandRequest{
		Args:        args,
		CommandName: cmd.Name,
		CommandPath: cmd.Path,
		Context:     ec,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to execute %s: %w", cmd.Name, err)
	}

	r.RecordUsage(ctx, cmd.Name)
	logging.Logger.Debug("Command executed", "command", cmd.Name, "result_type", res.Type, "action", res.Action)
	return Interpret(res), nil
}

// Interpret maps an execution result to its local effect
func Interpret(res *domain.CommandResult) Outcome {
	if res == nil {
		return Outcome{Message: "Command returned no result."}
	}
	if res.Type == domain.ResultCustom {
		return Outcome{
			NeedsConfirm: res.HasBashCommands,
			Submit:       res.Content,
		}
	}

	out := Outcome{Action: res.Action}
	switch res.Action {
	case ActionClear:
		out.ClearMessages = true
		out.Message = dataMessage(res.Data, "Conversation cleared.")
	case ActionHelp:
		out.Message = helpMessage(res.Data)
	case ActionModel:
		out.Message = modelMessage(res.Data)
	case ActionCost:
		out.Message = costMessage(res.Data)
	case ActionStatus:
		out.Message = statusMessage(res.Data)
	case ActionMemory:
		out.Message = memoryMessage(res.Data)
	case ActionConfig:
		out.OpenSettings = true
		out.Message = dataMessage(res.Data, "Opening settings...")
	case ActionRewind:
		out.Rewind, out.Message = rewindOutcome(res.Data)
	default:
		out.Message = dataMessage(res.Data, fmt.Sprintf("Command %q completed.", res.Action))
	}
	return out
}

func dataMessage(raw json.RawMessage, fallback string) string {
	var d struct {
		Message string `json:"message"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &d) == nil && d.Message != "" {
		return d.Message
	}
	return fallback
}

func helpMessage(raw json.RawMessage) string {
	var d struct {
		Content string `json:"content"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &d) == nil && d.Content != "" {
		return d.Content
	}
	return "No help available."
}

func modelMessage(raw json.RawMessage) string {
	var d struct {
		Available map[string][]string `json:"available"`
		Current   struct {
			Model    string `json:"model"`
			Provider string `json:"provider"`
		} `json:"current"`
		Message string `json:"message"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return "Model information unavailable."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current model: %s (%s)", d.Current.Model, d.Current.Provider)
	if models := d.Available[d.Current.Provider]; len(models) > 0 {
		fmt.Fprintf(&b, "\nAvailable: %s", strings.Join(models, ", "))
	}
	if d.Message != "" {
		b.WriteString("\n" + d.Message)
	}
	return b.String()
}

func costMessage(raw json.RawMessage) string {
	var d struct {
		Cost       string `json:"cost"`
		Model      string `json:"model"`
		TokenUsage struct {
			Total int `json:"total"`
			Used  int `json:"used"`
		} `json:"tokenUsage"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return "Cost information unavailable."
	}

	msg := fmt.Sprintf("Tokens used: %d", d.TokenUsage.Used)
	if d.TokenUsage.Total > 0 {
		msg += fmt.Sprintf(" / %d (%.1f%%)", d.TokenUsage.Total, 100*float64(d.TokenUsage.Used)/float64(d.TokenUsage.Total))
	}
	if d.Cost != "" {
		msg += "\nEstimated cost: $" + d.Cost
	}
	if d.Model != "" {
		msg += "\nModel: " + d.Model
	}
	return msg
}

func statusMessage(raw json.RawMessage) string {
	var d map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil || len(d) == 0 {
		return "Status unavailable."
	}

	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := []string{"System status:"}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %v", k, d[k]))
	}
	return strings.Join(lines, "\n")
}

func memoryMessage(raw json.RawMessage) string {
	var d struct {
		Exists  bool   `json:"exists"`
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return "Memory information unavailable."
	}
	if d.Message != "" {
		return d.Message
	}
	if !d.Exists {
		return fmt.Sprintf("No memory file at %s yet.", d.Path)
	}
	return "Memory file: " + d.Path
}

func rewindOutcome(raw json.RawMessage) (int, string) {
	var d struct {
		Message string `json:"message"`
		Steps   int    `json:"steps"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &d)
	}
	if d.Steps <= 0 {
		d.Steps = 1
	}
	if d.Message == "" {
		d.Message = fmt.Sprintf("Rewound %d step(s).", d.Steps)
	}
	return d.Steps, d.Message
}
