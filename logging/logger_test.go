package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "json to stdout",
			config: Config{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name:   "text to stderr",
			config: Config{Level: "debug", Format: "text", Output: "stderr"},
		},
		{
			name:   "defaults",
			config: Config{},
		},
		{
			name:    "unknown level",
			config:  Config{Level: "trace"},
			wantErr: "unknown level",
		},
		{
			name:    "unknown format",
			config:  Config{Format: "xml"},
			wantErr: "unsupported format",
		},
		{
			name:    "unwritable file",
			config:  Config{Output: "/nonexistent/dir/journeyid.log"},
			wantErr: "failed to open log file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := ParseLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)

	cfg = Config{Level: "warn", Format: "text", Output: "stderr"}.withDefaults()
	assert.Equal(t, Config{Level: "warn", Format: "text", Output: "stderr"}, cfg)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journeyid.log")

	logger, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("minted campaign", "campaign_id", "CMP-EYLEA-2026-001")
	logger.Debug("below level")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"campaign_id":"CMP-EYLEA-2026-001"`)
	assert.NotContains(t, string(data), "below level")
	assert.Regexp(t, `"time":"\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z"`, string(data))
}

func TestLogger_SetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journeyid.log")
	logger, err := New(Config{Level: "warn", Format: "text", Output: path})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, logger.Level())

	derived := logger.With("component", "minter")
	derived.Info("hidden")
	logger.SetLevel(slog.LevelDebug)
	derived.Debug("shown")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "msg=shown")
	assert.Contains(t, string(data), "component=minter")
}

func TestLogger_CloseStdout(t *testing.T) {
	logger, err := New(Config{Output: "stdout"})
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	logger.Info("dropped")
}
