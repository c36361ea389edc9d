package persona

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

//go:embed scripts/*.yaml
var defaultScripts embed.FS

// DefaultScriptGlob matches script files under a script directory.
const DefaultScriptGlob = "**/*.yaml"

// Library holds the loaded conversation scripts, keyed by persona. It
// starts from the embedded defaults; an optional script directory
// overrides per persona and can be hot reloaded.
type Library struct {
	mu      sync.RWMutex
	scripts map[Key]*Script

	dir         string
	pattern     string
	reloadDelay time.Duration
	logger      *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithScriptDir sets a directory whose scripts override the embedded
// defaults.
func WithScriptDir(dir string) LibraryOption {
	return func(l *Library) {
		l.dir = dir
	}
}

// WithScriptGlob sets the glob pattern for script files, relative to
// the script directory. Supports ** for recursion.
func WithScriptGlob(pattern string) LibraryOption {
	return func(l *Library) {
		l.pattern = pattern
	}
}

// WithLibraryLogger sets the logger.
func WithLibraryLogger(logger *slog.Logger) LibraryOption {
	return func(l *Library) {
		l.logger = logger
	}
}

// NewLibrary loads the embedded default scripts and, when a script
// directory is configured, layers its scripts on top.
func NewLibrary(opts ...LibraryOption) (*Library, error) {
	l := &Library{
		scripts:     make(map[Key]*Script),
		pattern:     DefaultScriptGlob,
		reloadDelay: 200 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.loadEmbedded(); err != nil {
		return nil, err
	}
	if l.dir != "" {
		if err := l.loadDir(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Library) loadEmbedded() error {
	entries, err := fs.Glob(defaultScripts, "scripts/*.yaml")
	if err != nil {
		return fmt.Errorf("glob embedded scripts: %w", err)
	}
	for _, name := range entries {
		data, err := defaultScripts.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read embedded script %s: %w", name, err)
		}
		script, err := ParseScript(data)
		if err != nil {
			return fmt.Errorf("embedded script %s: %w", name, err)
		}
		l.mu.Lock()
		l.scripts[script.Persona] = script
		l.mu.Unlock()
	}
	return nil
}

// loadDir parses every script matched under the script directory.
// Malformed files are skipped with a warning so one bad edit does not
// take the whole library down during a reload.
func (l *Library) loadDir() error {
	pattern, err := filepath.Abs(filepath.Join(l.dir, l.pattern))
	if err != nil {
		return err
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("glob scripts: %w", err)
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("Skipping unreadable script", "path", path, "error", err)
			continue
		}
		script, err := ParseScript(data)
		if err != nil {
			l.logger.Warn("Skipping malformed script", "path", path, "error", err)
			continue
		}
		l.mu.Lock()
		l.scripts[script.Persona] = script
		l.mu.Unlock()
		l.logger.Debug("Loaded script", "path", path, "persona", string(script.Persona))
	}
	return nil
}

// Watch reloads the script directory when its files change, debounced
// so editors that write in bursts trigger one reload. Blocks until ctx
// is done. No-op when no script directory is configured.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	l.logger.Info("Script watcher started", "dir", l.dir)

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(l.reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("Script watcher error", "error", err)

		case <-reload:
			if err := l.loadDir(); err != nil {
				l.logger.Error("Script reload failed", "error", err)
			}
		}
	}
}

// Script returns the script for a persona, falling back to the default
// persona's script for unknown keys.
func (l *Library) Script(key Key) *Script {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.scripts[key]; ok {
		return s
	}
	return l.scripts[DefaultKey]
}

// StepFor selects the scripted step for a persona given the number of
// user messages in the conversation so far. The first user message maps
// to the first step; conversations longer than the script replay its
// last step.
func (l *Library) StepFor(key Key, userMessages int) Step {
	return l.Script(key).StepAt(userMessages - 1)
}
