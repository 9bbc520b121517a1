package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_explicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("nope.yaml")
	require.Error(t, err)
}

func TestLoad_file(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := `
src: extension
dist: out
targets: [firefox, chromium, edge]
exclude: ["**/*.map"]
storage:
  driver: sqlite
  path: state.db
  delay: 250ms
  max_wait: 2s
log:
  level: debug
  file: extpack.log
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "extension", cfg.Src)
	assert.Equal(t, "out", cfg.Dist)
	assert.Equal(t, "src/manifests", cfg.Manifests, "unset keys keep defaults")
	assert.Equal(t, []string{"firefox", "chromium", "edge"}, cfg.Targets)
	assert.Equal(t, []string{"**/*.map"}, cfg.Exclude)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "state.db", cfg.Storage.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.Delay)
	assert.Equal(t, 2*time.Second, cfg.Storage.MaxWait)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "extpack.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxSize)
}

func TestLoad_envOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile),
		[]byte("dist: from-file\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("EXTPACK_DIST=from-dotenv\n"), 0o644))
	t.Setenv("EXTPACK_TARGETS", "firefox")
	// godotenv writes straight into the process environment.
	t.Cleanup(func() { os.Unsetenv("EXTPACK_DIST") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Dist)
	assert.Equal(t, []string{"firefox"}, cfg.Targets)
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"),
		[]byte("targets: [unterminated\n"), 0o644))

	_, err := Load("bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestConfig_applyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"EXTPACK_SRC":            "s",
		"EXTPACK_TARGETS":        " a, b ,,c ",
		"EXTPACK_STORAGE_DRIVER": DriverRedis,
		"EXTPACK_REDIS_ADDR":     "localhost:6379",
		"EXTPACK_LOG_LEVEL":      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.applyEnv(lookup)

	assert.Equal(t, "s", cfg.Src)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Targets)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Storage.Addr)
	assert.Equal(t, "info", cfg.Log.Level, "empty values are ignored")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: ErrNoTargets,
		},
		{
			name:    "duplicate target",
			mutate:  func(c *Config) { c.Targets = []string{"a", "a"} },
			wantErr: ErrDuplicateTarget,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "etcd" },
			wantErr: ErrUnknownDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("reserved target name", func(t *testing.T) {
		cfg := Default()
		cfg.Targets = []string{"all"}
		assert.Error(t, cfg.Validate())
	})
}
