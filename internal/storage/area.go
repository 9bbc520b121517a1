// Package storage persists the extension state: a JSON object kept in a
// storage area and shaped by a template of valid keys and default values.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/romdo/extpack/internal/config"
	"github.com/romdo/extpack/internal/fsext"
)

// Area is a key/value store holding one JSON object. Set upserts top-level
// keys and leaves other keys alone.
type Area interface {
	Get(ctx context.Context) (map[string]any, error)
	Set(ctx context.Context, values map[string]any) error
	Clear(ctx context.Context) error
	Close() error
}

// OpenArea opens the area selected by cfg.Driver.
func OpenArea(ctx context.Context, cfg config.Storage) (Area, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileArea(cfg.Path), nil
	case config.DriverSQLite:
		return OpenSQLiteArea(ctx, cfg.Path, cfg.Namespace)
	case config.DriverBadger:
		return OpenBadgerArea(cfg.Path, cfg.Namespace)
	case config.DriverRedis:
		return OpenRedisArea(ctx, cfg.Addr, cfg.Namespace)
	default:
		return nil, errors.Wrap(config.ErrUnknownDriver, cfg.Driver)
	}
}

// FileArea keeps the object in a single JSON file. Writes go to a temporary
// file that is renamed over the target, so readers never see a partial file.
type FileArea struct {
	path string
	mux  sync.Mutex
}

var _ Area = (*FileArea)(nil)

func NewFileArea(path string) *FileArea {
	return &FileArea{path: path}
}

func (a *FileArea) Get(_ context.Context) (map[string]any, error) {
	a.mux.Lock()
	defer a.mux.Unlock()

	return a.read()
}

func (a *FileArea) Set(_ context.Context, values map[string]any) error {
	a.mux.Lock()
	defer a.mux.Unlock()

	current, err := a.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}

	return a.write(current)
}

func (a *FileArea) Clear(_ context.Context) error {
	a.mux.Lock()
	defer a.mux.Unlock()

	return a.write(map[string]any{})
}

func (a *FileArea) Close() error {
	return nil
}

func (a *FileArea) read() (map[string]any, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read storage file")
	}

	obj := map[string]any{}
	if len(data) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrapf(err, "decode %s", a.path)
	}

	return obj, nil
}

func (a *FileArea) write(obj map[string]any) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode storage object")
	}

	return fsext.WriteFileAtomic(a.path, data, 0o644)
}

func encodeValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode value")
	}

	return data, nil
}

func decodeValue(key string, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrapf(err, "decode value of %q", key)
	}

	return v, nil
}
