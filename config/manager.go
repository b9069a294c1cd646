package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Manager keeps a Config loaded from a YAML file and reloads it when the
// file changes on disk.
type Manager struct {
	path     string
	mu       sync.RWMutex
	cfg      Config
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(Config)
	log      logrus.FieldLogger
}

type managerOptions struct {
	debounce time.Duration
	logger   logrus.FieldLogger
}

type ManagerOption func(*managerOptions)

func NewManager(path string, opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		path:     path,
		cfg:      *cfg,
		debounce: options.debounce,
		log:      options.logger,
	}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Watch starts watching the config file; onChange runs after every reload
// that produced a valid, different config. A Manager without a file path
// has nothing to watch and returns nil.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	if m.path == "" {
		return nil
	}

	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.watcher = watcher
	m.mu.Unlock()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, m.reloadFromDisk)
		timerMu.Unlock()
	}

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !m.isConfigEvent(evt) {
				continue
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				m.log.WithError(err).Warn("config watcher error")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) isConfigEvent(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(m.path) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reloadFromDisk() {
	cfg, err := Load(m.path)
	if err != nil {
		m.log.WithError(err).Warn("config reload failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		m.log.WithError(err).Warn("config validation failed")
		return
	}

	m.mu.RLock()
	current := m.cfg
	m.mu.RUnlock()
	if reflect.DeepEqual(current, *cfg) {
		return
	}
	m.applyConfig(*cfg)
}

func (m *Manager) applyConfig(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	m.log.WithField("path", m.path).Info("configuration reloaded")
	if cb != nil {
		cb(cfg)
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithLogger(l logrus.FieldLogger) ManagerOption {
	return func(o *managerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
