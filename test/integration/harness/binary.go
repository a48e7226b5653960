package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultTimeout bounds a single conduit invocation
const DefaultTimeout = 30 * time.Second

var build struct {
	sync.Once
	dir  string
	path string
	err  error
}

// CommandResult is what one conduit invocation left behind
type CommandResult struct {
	Args     []string
	ExitCode int
	Stderr   string
	Stdout   string
}

// String formats the invocation for failure messages
func (r CommandResult) String() string {
	return fmt.Sprintf("$ conduit %s (exit %d)\n--- stdout\n%s--- stderr\n%s",
		strings.Join(r.Args, " "), r.ExitCode, r.Stdout, r.Stderr)
}

// BuildBinary compiles ./cmd into a temp dir, once per test binary
func BuildBinary() (string, error) {
	build.Do(func() {
		root, err := moduleRoot()
		if err != nil {
			build.err = err
			return
		}
		if build.dir, err = os.MkdirTemp("", "conduit-it-*"); err != nil {
			build.err = err
			return
		}
		build.path = filepath.Join(build.dir, "conduit")

		cmd := exec.Command("go", "build", "-o", build.path, "./cmd")
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			build.err = fmt.Errorf("go build: %w\n%s", err, out)
		}
	})
	return build.path, build.err
}

// CleanupBinary removes what BuildBinary created
func CleanupBinary() {
	if build.dir != "" {
		_ = os.RemoveAll(build.dir)
	}
}

// RunCommand runs conduit in env with DefaultTimeout
func RunCommand(tb testing.TB, env *TestEnvironment, args ...string) CommandResult {
	tb.Helper()
	return RunCommandWithTimeout(tb, env, DefaultTimeout, args...)
}

// RunCommandWithTimeout runs conduit in env. A run that times out or cannot
// start reports exit code -1.
func RunCommandWithTimeout(tb testing.TB, env *TestEnvironment, timeout time.Duration, args ...string) CommandResult {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, build.path, args...)
	cmd.Env = env.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r := CommandResult{Args: args}
	var exitErr *exec.ExitError
	switch err := cmd.Run(); {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		tb.Logf("conduit %v timed out after %v", args, timeout)
		r.ExitCode = -1
	case errors.As(err, &exitErr):
		r.ExitCode = exitErr.ExitCode()
	case err != nil:
		tb.Logf("conduit %v did not run: %v", args, err)
		r.ExitCode = -1
	}
	r.Stdout = stdout.String()
	r.Stderr = stderr.String()
	return r
}

// moduleRoot walks up from the working directory to the go.mod
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the test directory")
		}
		dir = parent
	}
}
