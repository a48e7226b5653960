package config

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the conduit home directory
const EnvHome = "CONDUIT_HOME"

// GetHome returns CONDUIT_HOME or ~/.conduit default
func GetHome() string {
	home := os.Getenv(EnvHome)
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".conduit"
		}
		return filepath.Join(homeDir, ".conduit")
	}
	return ExpandPath(home)
}

// GetDBPath returns $CONDUIT_HOME/state.db
func GetDBPath() string {
	return filepath.Join(GetHome(), "state.db")
}

// GetSettingsPath returns $CONDUIT_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetHome(), "settings.json")
}

// GetSSHDir returns $CONDUIT_HOME/ssh, where the server keeps its host key
func GetSSHDir() string {
	return filepath.Join(GetHome(), "ssh")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
