//go:build !unix

package config

import "os"

// lockFile is a no-op where flock is unavailable
func lockFile(*os.File) error { return nil }

// unlockFile is a no-op where flock is unavailable
func unlockFile(*os.File) error { return nil }
