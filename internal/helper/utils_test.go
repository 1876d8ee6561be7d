package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.True(t, IsValidUUID(a))
	assert.True(t, IsValidUUID(b))
	assert.NotEqual(t, a, b)
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("123e4567-e89b-12d3-a456"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "paper.pdf", "paper.pdf"},
		{"spaces and specials", "my paper (v2)!.pdf", "mypaperv2.pdf"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"unicode letters kept", "論文.pdf", "論文.pdf"},
		{"nothing safe", "???", "fallback.pdf"},
		{"only dots", "...", "fallback.pdf"},
		{"empty", "", "fallback.pdf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input, "fallback.pdf"))
		})
	}
}

func TestClearFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("y"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	removed, err := ClearFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
}

func TestClearFolderCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	removed, err := ClearFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
