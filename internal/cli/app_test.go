package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "(not set)"},
		{"short", "****"},
		{"12345678", "****"},
		{"0123456789abcdef", "0123...cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.input))
		})
	}
}

func TestResolveBuilder(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.Config{ProjectDir: dir}
	_, err := resolveBuilder(cfg)
	assert.Error(t, err, "empty directory has no build tool")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hardhat.config.ts"), []byte("export default {}"), 0644))
	b, err := resolveBuilder(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hardhat", b.Name())

	cfg.Builder = "foundry"
	b, err = resolveBuilder(cfg)
	require.NoError(t, err)
	assert.Equal(t, "foundry", b.Name())

	cfg.Builder = "truffle"
	_, err = resolveBuilder(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown builder")
}
