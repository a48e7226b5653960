package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/renato0307/conduit/internal/commands"
	"github.com/renato0307/conduit/internal/domain"
)

// CommandsCmd lists the slash command catalog
type CommandsCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
	Query  string `arg:"" optional:"" help:"Fuzzy filter, as typed after / in the chat"`
	Reload bool   `help:"Ask the server to rescan skills"`
}

// Run executes the commands command
func (c *CommandsCmd) Run(cli *CLI) error {
	project, err := cli.project()
	if err != nil {
		return err
	}
	provider := cli.provider()
	if provider == "" {
		provider = domain.ProviderClaude
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolver := commands.NewResolver(cli.Container.API, cli.Container.KV)
	if err := resolver.Load(ctx, project, provider, c.Reload); err != nil {
		return fmt.Errorf("failed to load commands: %w", err)
	}

	list := resolver.Commands()
	if c.Query != "" {
		list = resolver.Search(c.Query)
	}
	return writeCommands(os.Stdout, c.Format, list)
}

func writeCommands(out io.Writer, format string, list []domain.SlashCommand) error {
	if format == "json" {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tDESCRIPTION")
	for _, cmd := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", cmd.Name, cmd.Type, cmd.Description)
	}
	return w.Flush()
}
