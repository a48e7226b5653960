package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input    string
		expected Provider
	}{
		{"claude", ProviderClaude},
		{"Cursor", ProviderCursor},
		{"  codex ", ProviderCodex},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseProvider(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestParseProvider_Unknown(t *testing.T) {
	_, err := ParseProvider("gemini")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNextPermissionMode_Cycles(t *testing.T) {
	mode := PermissionDefault
	var seen []PermissionMode
	for range 4 {
		mode = NextPermissionMode(ProviderClaude, mode)
		seen = append(seen, mode)
	}
	assert.Equal(t, []PermissionMode{PermissionAcceptEdits, PermissionBypass, PermissionPlan, PermissionDefault}, seen)
}

func TestNextPermissionMode_CodexSkipsPlan(t *testing.T) {
	assert.Equal(t, PermissionDefault, NextPermissionMode(ProviderCodex, PermissionBypass))
	assert.Equal(t, PermissionDefault, NextPermissionMode(ProviderCodex, PermissionPlan), "unknown mode restarts the cycle")
}

func TestTemporarySessionID(t *testing.T) {
	id := NewTemporarySessionID(time.UnixMilli(1700000000123))

	assert.Equal(t, "new-session-1700000000123", id)
	assert.True(t, IsTemporarySessionID(id))
	assert.False(t, IsTemporarySessionID("9f0c2b1e-session"))
	assert.False(t, IsTemporarySessionID(""))
}

func TestProjectWorkingDir(t *testing.T) {
	assert.Equal(t, "/full", Project{FullPath: "/full", Path: "/short"}.WorkingDir())
	assert.Equal(t, "/short", Project{Path: "/short"}.WorkingDir())
}
