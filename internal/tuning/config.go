package tuning

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ghostwire/ghostwire/internal/logging"
)

// Store is the broker's single, guarded copy of the runtime tuning
// record, optionally backed by a YAML file that is hot-reloaded. This
// is the concrete mechanism behind framework.reload (spec §6):
// rewriting the file and letting the watcher pick it up has the same
// effect as calling framework.setConfig over the wire.
//
// Grounded on the teacher's internal/provider/models.go and
// internal/agent/skills/loader.go, both of which pair an
// fsnotify.Watcher with a yaml.v3-decoded config file reloaded on
// Write/Create events.
type Store struct {
	mu      sync.RWMutex
	current Tuning
	path    string
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewStore creates a Store seeded with Default(), optionally loading
// and then watching path if it is non-empty.
func NewStore(ctx context.Context, path string) (*Store, error) {
	s := &Store{current: Default(), path: path}
	if path == "" {
		return s, nil
	}
	if err := s.loadFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load tuning file: %w", err)
	}
	if err := s.watch(ctx); err != nil {
		return nil, fmt.Errorf("watch tuning file: %w", err)
	}
	return s, nil
}

// Get returns a copy of the current tuning, safe to mutate by the
// caller and safe to inject into a command's params.
func (s *Store) Get() Tuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Copy()
}

// Set replaces the current tuning outright. framework.setConfig does
// not use it; it goes through Merge.
func (s *Store) Set(t Tuning) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}

// Merge overlays patch onto the current tuning and stores the result,
// returning the merged record — the behaviour framework.setConfig
// actually exposes over the wire (spec §8: "returns a record equal to
// X merged into the current tuning").
func (s *Store) Merge(patch Tuning) Tuning {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.current.MergeInto(patch)
	return s.current.Copy()
}

func (s *Store) loadFile() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.current = s.current.MergeInto(t)
	s.mu.Unlock()
	return nil
}

func (s *Store) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return err
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	log := logging.FromContext(ctx)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.loadFile(); err != nil {
					log.Warn("tuning file reload failed", "path", s.path, "err", err)
					continue
				}
				log.Info("tuning file reloaded", "path", s.path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("tuning file watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if any.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
