// Package config loads the extpack configuration from an optional YAML file,
// an optional .env file and EXTPACK_* environment variables, in that order of
// increasing precedence.
package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when no path is given.
const DefaultFile = "extpack.yaml"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

var (
	ErrNoTargets       = errors.New("no targets configured")
	ErrDuplicateTarget = errors.New("duplicate target")
	ErrUnknownDriver   = errors.New("unknown storage driver")
)

type Config struct {
	// Src is the extension source directory copied into every target.
	Src string `yaml:"src"`
	// Manifests holds manifest.base.json and manifest.<target>.json.
	Manifests string `yaml:"manifests"`
	// Package is the package.json providing the version.
	Package string `yaml:"package"`
	// Dist receives dist/<target>/ and dist/<target>.zip.
	Dist    string   `yaml:"dist"`
	Targets []string `yaml:"targets"`
	// Exclude lists doublestar patterns, relative to Src, of files that are
	// not copied.
	Exclude []string `yaml:"exclude"`
	Storage Storage  `yaml:"storage"`
	Log     Log      `yaml:"log"`
}

type Storage struct {
	Driver string `yaml:"driver"`
	// Path is the file, SQLite database or Badger directory.
	Path string `yaml:"path"`
	// Addr is the Redis address.
	Addr string `yaml:"addr"`
	// Namespace separates areas sharing a backend.
	Namespace string `yaml:"namespace"`
	// Template is a JSON file with the default storage object. When empty,
	// the built-in {"count": 0} is used.
	Template string        `yaml:"template"`
	Delay    time.Duration `yaml:"delay"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Src:       "src",
		Manifests: "src/manifests",
		Package:   "package.json",
		Dist:      "dist",
		Targets:   []string{"firefox", "chromium"},
		Storage: Storage{
			Driver:    DriverFile,
			Path:      ".extpack/storage.json",
			Namespace: "extpack",
			Delay:     500 * time.Millisecond,
			MaxWait:   time.Second,
		},
		Log: Log{
			Level:      "info",
			MaxSize:    5, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

// Load builds the configuration. An empty path means DefaultFile, which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, errors.Wrap(err, "read config")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("EXTPACK_SRC", &c.Src)
	str("EXTPACK_MANIFESTS", &c.Manifests)
	str("EXTPACK_PACKAGE", &c.Package)
	str("EXTPACK_DIST", &c.Dist)
	str("EXTPACK_STORAGE_DRIVER", &c.Storage.Driver)
	str("EXTPACK_STORAGE_PATH", &c.Storage.Path)
	str("EXTPACK_REDIS_ADDR", &c.Storage.Addr)
	str("EXTPACK_LOG_LEVEL", &c.Log.Level)
	str("EXTPACK_LOG_FILE", &c.Log.File)

	if v, ok := lookup("EXTPACK_TARGETS"); ok && v != "" {
		var targets []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				targets = append(targets, t)
			}
		}
		c.Targets = targets
	}
}

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t == "all" {
			return errors.Errorf("target name %q is reserved", t)
		}
		if seen[t] {
			return errors.Wrap(ErrDuplicateTarget, t)
		}
		seen[t] = true
	}

	switch c.Storage.Driver {
	case DriverFile, DriverSQLite, DriverBadger, DriverRedis:
	default:
		return errors.Wrap(ErrUnknownDriver, c.Storage.Driver)
	}

	return nil
}
