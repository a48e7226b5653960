package harness

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// NewTestProject creates a git repository with one commit holding files,
// a map of relative path to content. It returns the repository path.
func NewTestProject(tb testing.TB, files map[string]string) string {
	tb.Helper()

	dir := filepath.Join(tb.TempDir(), "project")
	if err := os.MkdirAll(dir, 0755); err != nil {
		tb.Fatalf("Failed to create project directory: %v", err)
	}
	runGitCommand(tb, dir, "init")

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			tb.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			tb.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	runGitCommand(tb, dir, "add", "-A")
	runGitCommand(tb, dir, "commit", "--allow-empty", "-m", "Initial commit")

	return dir
}

// runGitCommand executes a git command in the specified directory.
func runGitCommand(tb testing.TB, dir string, args ...string) {
	tb.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("git %v failed in %s: %v\nOutput: %s", args, dir, err, output)
	}
}
