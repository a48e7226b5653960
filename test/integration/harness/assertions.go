package harness

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSuccess fails the test unless conduit exited 0
func AssertSuccess(tb testing.TB, r CommandResult) {
	tb.Helper()
	assert.Zero(tb, r.ExitCode, "conduit exited %d\n%s", r.ExitCode, r)
}

// AssertFailure fails the test unless conduit exited non-zero
func AssertFailure(tb testing.TB, r CommandResult) {
	tb.Helper()
	assert.NotZero(tb, r.ExitCode, "conduit was expected to fail\n%s", r)
}

// AssertFailedWith checks conduit failed and printed want on stderr, after
// the "Error:" prefix main writes
func AssertFailedWith(tb testing.TB, r CommandResult, want string) {
	tb.Helper()
	AssertFailure(tb, r)
	assert.Contains(tb, r.Stderr, "Error:", "no error line\n%s", r)
	AssertStderrContains(tb, r, want)
}

// AssertStdoutContains checks stdout holds every one of want
func AssertStdoutContains(tb testing.TB, r CommandResult, want ...string) {
	tb.Helper()
	for _, w := range want {
		assert.Contains(tb, r.Stdout, w, "stdout is missing %q\n%s", w, r)
	}
}

// AssertStderrContains checks stderr holds want
func AssertStderrContains(tb testing.TB, r CommandResult, want string) {
	tb.Helper()
	assert.Contains(tb, r.Stderr, want, "stderr is missing %q\n%s", want, r)
}

// AssertValidJSON decodes stdout into target
func AssertValidJSON(tb testing.TB, r CommandResult, target any) {
	tb.Helper()
	require.NoError(tb, json.Unmarshal([]byte(r.Stdout), target), "stdout is not JSON\n%s", r)
}

// CommandNames returns the NAME column of the `conduit commands` table
func CommandNames(tb testing.TB, r CommandResult) []string {
	tb.Helper()
	lines := strings.Split(strings.TrimSpace(r.Stdout), "\n")
	require.NotEmpty(tb, lines)
	require.Equal(tb, "NAME", strings.Fields(lines[0])[0], "not a command table\n%s", r)

	names := make([]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		if f := strings.Fields(l); len(f) > 0 {
			names = append(names, f[0])
		}
	}
	return names
}
