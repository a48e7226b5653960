// Package harness provides utilities for integration testing the conduit CLI.
// It handles binary compilation, environment isolation, and command execution.
//
// Environment variables managed:
//   - CONDUIT_HOME: Isolated per test (temp directory)
//   - CONDUIT_DEBUG: Disabled to reduce noise
//   - CONDUIT_SERVER and CONDUIT_TOKEN: Cleared so tests pick their own server
package harness
