package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/romdo/extpack/internal/config"
)

func TestNew_levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		verbose   bool
		wantDebug bool
		wantInfo  bool
		wantErr   bool
	}{
		{name: "default", wantInfo: true},
		{name: "info", level: "info", wantInfo: true},
		{name: "warn", level: "warn"},
		{name: "verbose overrides", level: "error", verbose: true, wantDebug: true, wantInfo: true},
		{name: "invalid", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(config.Log{Level: tt.level}, tt.verbose)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.wantInfo, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestNew_file(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "extpack.log")
	cfg := config.Default().Log
	cfg.File = path

	logger, err := New(cfg, false)
	require.NoError(t, err)

	logger.Info("built target")
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"built target"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestRotatingFile(t *testing.T) {
	t.Parallel()

	cfg := config.Log{
		File:       "x.log",
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     3,
		Compress:   true,
	}

	l := RotatingFile(cfg)
	assert.Equal(t, "x.log", l.Filename)
	assert.Equal(t, 1, l.MaxSize)
	assert.Equal(t, 2, l.MaxBackups)
	assert.Equal(t, 3, l.MaxAge)
	assert.True(t, l.Compress)
}
