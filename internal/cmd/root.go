package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
)

// Environment variables read when the matching flag is left at its default
const (
	EnvProject  = "CONDUIT_PROJECT"
	EnvProvider = "CONDUIT_PROVIDER"
	EnvServer   = "CONDUIT_SERVER"
	EnvToken    = "CONDUIT_TOKEN"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`
	Project     string           `help:"Project directory the agent works in (defaults to the current directory)"`
	Provider    string           `help:"Agent provider: claude, codex or cursor"`
	Server      string           `help:"Agent server base URL" placeholder:"URL"`
	Token       string           `help:"Auth token for the agent server"`

	Chat     ChatCmd     `cmd:"" help:"Start the conduit chat (default)" default:"1"`
	Commands CommandsCmd `cmd:"commands" help:"List the slash commands and skills available for a provider"`
	Send     SendCmd     `cmd:"send" help:"Send one message and print the agent's answer"`
	Serve    ServeCmd    `cmd:"serve" help:"Serve the chat over SSH"`
	Settings SettingsCmd `cmd:"settings" help:"Manage settings (meta)"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	// Precedence: CLI flags > env vars > settings.json > defaults
	if c.settings == nil {
		c.settings = &config.Settings{}
	}

	if c.MaxLogFiles == logging.DefaultMaxLogFiles {
		if _, hasEnv := os.LookupEnv(logging.EnvMaxLogFiles); !hasEnv && c.settings.MaxLogFiles != nil {
			c.MaxLogFiles = *c.settings.MaxLogFiles
		}
	}
	if !c.Debug {
		if _, hasEnv := os.LookupEnv(logging.EnvDebug); !hasEnv {
			c.Debug = config.Bool(c.settings.Debug, false)
		}
	}

	c.Server = resolve(c.Server, EnvServer, c.settings.ServerURL, config.DefaultServerURL)
	c.Token = resolve(c.Token, EnvToken, c.settings.AuthToken, "")
	c.Provider = resolve(c.Provider, EnvProvider, c.settings.Provider, "")
	c.Project = resolve(c.Project, EnvProject, c.settings.ProjectPath, "")
	if c.Provider != "" {
		if _, err := domain.ParseProvider(c.Provider); err != nil {
			return err
		}
	}

	logFilePath, err := logging.Initialize(logging.Options{
		Debug:       c.Debug,
		DebugFile:   c.DebugFile,
		MaxLogFiles: c.MaxLogFiles,
	})
	if err != nil {
		return err
	}

	// Exported after initialization so child invocations share the same log file
	if c.Debug || c.DebugFile != "" {
		os.Setenv(logging.EnvDebug, "1")
		if logFilePath != "" {
			os.Setenv(logging.EnvDebugFile, logFilePath)
		}
	}
	if c.MaxLogFiles != logging.DefaultMaxLogFiles {
		os.Setenv(logging.EnvMaxLogFiles, strconv.Itoa(c.MaxLogFiles))
	}

	// The container opens the database, whose logger needs logging ready
	container, err := NewContainer(c.settings, c.Server, c.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container

	return nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}

// project resolves the workspace the agent runs in
func (c *CLI) project() (domain.Project, error) {
	dir := c.Project
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return domain.Project{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(config.ExpandPath(dir))
	if err != nil {
		return domain.Project{}, fmt.Errorf("invalid project path: %w", err)
	}

	name := c.settings.ProjectName
	if name == "" {
		name = filepath.Base(abs)
	}
	return domain.Project{FullPath: abs, Name: name, Path: abs}, nil
}

// provider returns the provider chosen on the command line, or "" to use
// the one saved from the last run
func (c *CLI) provider() domain.Provider {
	p, err := domain.ParseProvider(c.Provider)
	if err != nil {
		return ""
	}
	return p
}

// resolve applies flag > env > settings > default to a string option
func resolve(flag, env, setting, def string) string {
	if flag != "" {
		return flag
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	if setting != "" {
		return setting
	}
	return def
}
