// internal/persona/registry.go
package persona

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Registry holds the loaded persona profiles. It starts seeded with the
// built-in defaults; LoadDir overlays profiles from YAML files and
// Watch keeps them fresh while the process runs. Invalid files are
// rejected whole, the previous profile stays active.
type Registry struct {
	mu       sync.RWMutex
	profiles map[types.Persona]*Profile
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		profiles: make(map[types.Persona]*Profile),
		logger:   logger,
	}
	for _, p := range defaultProfiles() {
		r.profiles[p.Name] = p
	}
	return r
}

func (r *Registry) Get(name types.Persona) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("persona %q: %w", name, types.ErrNotFound)
	}
	return p, nil
}

func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadDir reads every *.yaml/*.yml profile in dir. A missing directory
// is not an error; the defaults stay in place.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read persona dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.loadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read persona file: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("persona file %s: %w", path, err)
	}
	r.mu.Lock()
	r.profiles[p.Name] = &p
	r.mu.Unlock()
	r.logger.Info("persona profile loaded", "persona", p.Name, "path", path)
	return nil
}

// Watch reloads profile files as they change until ctx is cancelled.
// Reload failures are logged and skipped; the previous profile keeps
// serving.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("persona watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch persona dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if !isYAML(ev.Name) {
					continue
				}
				if err := r.loadFile(ev.Name); err != nil {
					r.logger.Warn("persona reload failed", "path", ev.Name, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("persona watcher error", "error", err)
			}
		}
	}()
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
