// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIKey, "  sk-abc123  \n")
				writeFile(t, dir, NCBIKey, "ncbi_xyz789")
				writeFile(t, dir, OpenAlexEmail, "user@example.com\n")
				return dir
			},
			want: map[string]string{
				OpenAIKey:     "sk-abc123",
				NCBIKey:       "ncbi_xyz789",
				OpenAlexEmail: "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{AnthropicKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, GeminiKey, "g_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{GeminiKey: "g_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(context.Background(), tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func TestLoadLogsThroughContextLogger(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "dangling-key")))

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"good-key": "value123"}, got)
	assert.Contains(t, buf.String(), `"secret":"dangling-key"`)
	assert.Contains(t, buf.String(), "could not read secret")
}

func TestLoadAllPrecedence(t *testing.T) {
	for _, env := range envNames {
		t.Setenv(env, "")
	}

	root := t.TempDir()
	dotenv := filepath.Join(root, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"OPENAI_API_KEY=from-dotenv\nANTHROPIC_API_KEY=from-dotenv\nNCBI_API_KEY=from-dotenv\nUNRELATED=x\n"), 0o644))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("NCBI_API_KEY", "from-env")

	dir := filepath.Join(root, ".secrets")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, NCBIKey, "from-file")

	got, err := LoadAll(context.Background(), dir, dotenv)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		OpenAIKey:    "from-dotenv",
		AnthropicKey: "from-env",
		NCBIKey:      "from-file",
	}, got)
}

func TestLoadAllMissingSources(t *testing.T) {
	for _, env := range envNames {
		t.Setenv(env, "")
	}
	root := t.TempDir()

	got, err := LoadAll(context.Background(), filepath.Join(root, "nope"), filepath.Join(root, ".env"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
