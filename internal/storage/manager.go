package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/romdo/extpack/debounce"
)

const (
	DefaultSaveDelay   = 500 * time.Millisecond
	DefaultSaveMaxWait = time.Second

	writeTimeout = 10 * time.Second
)

// DefaultTemplate returns the built-in storage template.
func DefaultTemplate() map[string]any {
	return map[string]any{"count": float64(0)}
}

// LoadTemplate reads a template from a JSON file. An empty path returns
// DefaultTemplate.
func LoadTemplate(path string) (map[string]any, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read storage template")
	}

	var tmpl map[string]any
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, errors.Wrapf(err, "decode storage template %s", path)
	}
	if tmpl == nil {
		return nil, errors.Errorf("storage template %s is not an object", path)
	}

	return tmpl, nil
}

type ManagerOption func(*Manager)

// WithSaveDelay sets the quiet period after the last Save before writing.
func WithSaveDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.delay = d
	}
}

// WithSaveMaxWait sets the longest a Save may be postponed by later ones.
func WithSaveMaxWait(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxWait = d
	}
}

func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

type snapshot struct {
	seq uint64
	obj map[string]any
}

// Manager loads and saves the state object of an area, cleaning it against
// the template on every read and write. Saves are debounced.
type Manager struct {
	area     Area
	template map[string]any
	log      *zap.Logger
	delay    time.Duration
	maxWait  time.Duration
	save     *debounce.Invoker[snapshot]
	seq      atomic.Uint64

	writeMux  sync.Mutex
	attempted uint64
	lastErr   error
}

// Open wraps area in a Manager and rewrites its contents in cleaned form:
// unknown keys are removed and missing ones filled with defaults.
func Open(
	ctx context.Context,
	area Area,
	template map[string]any,
	opts ...ManagerOption,
) (*Manager, error) {
	m := &Manager{
		area:     area,
		template: template,
		log:      zap.NewNop(),
		delay:    DefaultSaveDelay,
		maxWait:  DefaultSaveMaxWait,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.save = debounce.NewInvoker(m.write,
		debounce.WithDelay(m.delay),
		debounce.WithMaxWait(m.maxWait),
		debounce.WithLogger(m.log.Named("debounce")),
	)

	if _, err := m.Reset(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// Reset replaces the stored object with its cleaned form and returns it.
func (m *Manager) Reset(ctx context.Context) (map[string]any, error) {
	raw, err := m.area.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	clean := Clean(raw, m.template)

	m.writeMux.Lock()
	defer m.writeMux.Unlock()

	if err := m.area.Clear(ctx); err != nil {
		return nil, errors.Wrap(err, "clear state")
	}
	if err := m.area.Set(ctx, clean); err != nil {
		return nil, errors.Wrap(err, "store cleaned state")
	}

	return clean, nil
}

// Load returns the stored object cleaned against the template.
func (m *Manager) Load(ctx context.Context) (map[string]any, error) {
	raw, err := m.area.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}

	return Clean(raw, m.template), nil
}

// Save schedules obj to be written. The object is copied, so the caller may
// keep mutating it. Write failures are logged and reported by Err.
func (m *Manager) Save(obj map[string]any) {
	m.save.Trigger(snapshot{
		seq: m.seq.Add(1),
		obj: clone(obj).(map[string]any),
	})
}

// Flush writes any pending save now and waits for in-flight writes.
func (m *Manager) Flush() error {
	m.save.Flush()
	m.save.Wait()

	return m.Err()
}

// Err returns the error of the most recent write, if it failed.
func (m *Manager) Err() error {
	m.writeMux.Lock()
	defer m.writeMux.Unlock()

	return m.lastErr
}

// Close flushes pending saves and closes the area.
func (m *Manager) Close() error {
	flushErr := m.Flush()
	if err := m.area.Close(); err != nil {
		return errors.Wrap(err, "close storage area")
	}

	return flushErr
}

// write is the debounced save action. Writes are serialized, and a snapshot
// older than the last one attempted is skipped, even if that attempt failed.
func (m *Manager) write(s snapshot) {
	m.writeMux.Lock()
	defer m.writeMux.Unlock()

	if s.seq <= m.attempted {
		m.log.Debug("skipping stale save", zap.Uint64("seq", s.seq))
		return
	}
	m.attempted = s.seq

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.area.Set(ctx, Clean(s.obj, m.template)); err != nil {
		m.lastErr = err
		m.log.Error("failed to save to storage", zap.Error(err))
		return
	}

	m.lastErr = nil
	m.log.Debug("storage saved", zap.Uint64("seq", s.seq))
}
