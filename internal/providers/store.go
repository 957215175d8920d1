package providers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/model"
	"github.com/himena-app/himena/internal/workflow"
)

// Store is the process-wide provider registry. It implements
// workflow.ReaderRunner so the compute engine can be wired to it directly.
type Store struct {
	mu      sync.RWMutex
	readers []ReaderProvider
	writers []WriterProvider

	// cache memoizes read results keyed by plugin+paths. Nil unless enabled;
	// intended for remote or slow sources, not local editing sessions.
	cache *gocache.Cache
}

// NewStore creates an empty provider store.
func NewStore() *Store {
	return &Store{}
}

// EnableCache turns on read-through caching of reader results with the given
// time-to-live.
func (s *Store) EnableCache(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = gocache.New(ttl, 2*ttl)
}

// RegisterReader adds a reader provider.
func (s *Store) RegisterReader(p ReaderProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers = append(s.readers, p)
	log.Debug(log.CatReader, "registered reader", "plugin", p.Plugin, "type", p.OutputModelType)
}

// RegisterWriter adds a writer provider.
func (s *Store) RegisterWriter(p WriterProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writers = append(s.writers, p)
	log.Debug(log.CatReader, "registered writer", "plugin", p.Plugin)
}

// PickReader selects a reader for the paths. An explicit plugin id wins
// outright; otherwise the highest-priority provider claiming every path is
// chosen.
func (s *Store) PickReader(paths []string, plugin string) (ReaderProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plugin != "" {
		for _, p := range s.readers {
			if p.Plugin == plugin {
				return p, nil
			}
		}
		return ReaderProvider{}, fmt.Errorf("plugin %q: %w", plugin, ErrReaderNotFound)
	}

	best, ok := ReaderProvider{}, false
	for _, p := range s.readers {
		if !claimsAll(p, paths) {
			continue
		}
		if !ok || p.Priority > best.Priority {
			best, ok = p, true
		}
	}
	if !ok {
		return ReaderProvider{}, fmt.Errorf("paths %v: %w", paths, ErrReaderNotFound)
	}
	return best, nil
}

// PickReaderForType selects the best reader that claims the paths and produces
// the expected model type or a subtype of it. Used when restoring a session:
// the stored model type is authoritative, the original plugin may be gone.
func (s *Store) PickReaderForType(paths []string, modelType string) (ReaderProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, ok := ReaderProvider{}, false
	for _, p := range s.readers {
		if !claimsAll(p, paths) || !model.IsSubtype(p.OutputModelType, modelType) {
			continue
		}
		if !ok || p.Priority > best.Priority {
			best, ok = p, true
		}
	}
	if !ok {
		return ReaderProvider{}, fmt.Errorf("paths %v type %q: %w", paths, modelType, ErrReaderNotFound)
	}
	return best, nil
}

// PickWriter selects a writer for the model and destination path.
func (s *Store) PickWriter(m *workflow.DataModel, path string, plugin string) (WriterProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plugin != "" {
		for _, p := range s.writers {
			if p.Plugin == plugin {
				return p, nil
			}
		}
		return WriterProvider{}, fmt.Errorf("plugin %q: %w", plugin, ErrWriterNotFound)
	}

	best, ok := WriterProvider{}, false
	for _, p := range s.writers {
		if p.CanWrite != nil && !p.CanWrite(m, path) {
			continue
		}
		if !ok || p.Priority > best.Priority {
			best, ok = p, true
		}
	}
	if !ok {
		return WriterProvider{}, fmt.Errorf("model type %q path %q: %w", m.Type, path, ErrWriterNotFound)
	}
	return best, nil
}

// Run implements workflow.ReaderRunner: pick a reader, materialize the model,
// and attach read provenance.
func (s *Store) Run(_ context.Context, paths []string, plugin string) (*workflow.DataModel, error) {
	p, err := s.PickReader(paths, plugin)
	if err != nil {
		return nil, err
	}

	key := cacheKey(p.Plugin, paths)
	s.mu.RLock()
	c := s.cache
	s.mu.RUnlock()
	if c != nil {
		if hit, ok := c.Get(key); ok {
			log.Debug(log.CatCache, "read cache hit", "key", key)
			clone := *hit.(*workflow.DataModel)
			return &clone, nil
		}
	}

	m, err := p.Read(paths)
	if err != nil {
		return nil, fmt.Errorf("reading %v with %s: %w", paths, p.Plugin, err)
	}
	if m.Title == "" {
		m.Title = filepath.Base(paths[0])
	}
	m.WithSource(paths, p.Plugin)
	log.Debug(log.CatReader, "read", "plugin", p.Plugin, "paths", strings.Join(paths, ","), "type", m.Type)

	if c != nil {
		clone := *m
		c.Set(key, &clone, gocache.DefaultExpiration)
	}
	return m, nil
}

// Write persists a model through the best matching writer.
func (s *Store) Write(m *workflow.DataModel, path string, plugin string) error {
	p, err := s.PickWriter(m, path, plugin)
	if err != nil {
		return err
	}
	if err := p.Write(m, path); err != nil {
		return fmt.Errorf("writing %q with %s: %w", path, p.Plugin, err)
	}
	log.Debug(log.CatReader, "wrote", "plugin", p.Plugin, "path", path)
	return nil
}

func claimsAll(p ReaderProvider, paths []string) bool {
	if p.CanRead == nil || len(paths) == 0 {
		return false
	}
	for _, path := range paths {
		if !p.CanRead(path) {
			return false
		}
	}
	return true
}

func cacheKey(plugin string, paths []string) string {
	return plugin + "|" + strings.Join(paths, "|")
}
