package cmd

import (
	"io"

	adapterapi "github.com/renato0307/conduit/internal/adapters/api"
	adaptergit "github.com/renato0307/conduit/internal/adapters/git"
	adaptersound "github.com/renato0307/conduit/internal/adapters/sound"
	adapterstorage "github.com/renato0307/conduit/internal/adapters/storage"
	adaptertransport "github.com/renato0307/conduit/internal/adapters/transport"
	"github.com/renato0307/conduit/internal/client"
	"github.com/renato0307/conduit/internal/config"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/protocol"
)

// Container holds the dependencies shared by every client the process builds
type Container struct {
	API *adapterapi.Client
	KV  *adapterstorage.SQLiteKVStore

	serverURL string
	settings  *config.Settings
	token     string
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(settings *config.Settings, serverURL, token string) (*Container, error) {
	kv, err := adapterstorage.NewSQLiteKVStore(config.GetDBPath())
	if err != nil {
		return nil, err
	}

	return &Container{
		API:       adapterapi.NewClient(serverURL, token, nil),
		KV:        kv,
		serverURL: serverURL,
		settings:  settings,
		token:     token,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.KV != nil {
		return c.KV.Close()
	}
	return nil
}

// ClientConfig describes one conversation host
type ClientConfig struct {
	// Bell receives the terminal bell when no system sound is available
	Bell     io.Writer
	Notify   func(protocol.Event)
	Project  domain.Project
	Provider domain.Provider
	// Reconnect keeps the channel dialing after it drops
	Reconnect bool
}

// NewClient wires a client to its own realtime channel and the shared
// HTTP and storage adapters
func (c *Container) NewClient(cfg ClientConfig) (*client.Client, error) {
	endpoint, err := adaptertransport.Endpoint(c.serverURL, c.token)
	if err != nil {
		return nil, err
	}

	var cl *client.Client
	channel := adaptertransport.NewChannel(adaptertransport.Options{
		OnState: func(connected bool) {
			if cl != nil {
				cl.SetConnected(connected)
			}
		},
		Reconnect: cfg.Reconnect,
		Token:     c.token,
		URL:       endpoint,
	})
	logging.Logger.Debug("Realtime channel created", "channel_id", channel.ID(), "project", cfg.Project.Name)

	cl = client.New(client.Options{
		Alerter:         adaptersound.NewPlayer(config.Bool(c.settings.Sound, true), cfg.Bell),
		Catalog:         c.API,
		Files:           adaptergit.NewFileLister(cfg.Project.WorkingDir()),
		KV:              c.KV,
		Models:          c.models(),
		Notify:          cfg.Notify,
		Project:         cfg.Project,
		Provider:        cfg.Provider,
		SendByCtrlEnter: config.Bool(c.settings.SendByCtrlEnter, false),
		Transport:       channel,
		Uploader:        c.API,
	})
	return cl, nil
}

// models maps the per-provider model names in settings.json, skipping
// unknown providers
func (c *Container) models() map[domain.Provider]string {
	models := make(map[domain.Provider]string, len(c.settings.Models))
	for name, model := range c.settings.Models {
		p, err := domain.ParseProvider(name)
		if err != nil {
			logging.Logger.Warn("Ignoring model for unknown provider", "provider", name)
			continue
		}
		models[p] = model
	}
	return models
}
