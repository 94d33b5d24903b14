// internal/definition/registry.go
//
// Formstate – definition registry.
//
// Context
//   Definitions live under one directory, one YAML file per form, the file's
//   relative path (minus ".yaml") being the form ID.  The registry loads a
//   definition the first time it is asked for, compiles its schema, and keeps
//   the result in a bounded LRU.  Concurrent first requests for the same ID
//   share one load through singleflight.
//
// Workflow
//   •  Get(id)     → cached Entry, loading on demand.
//   •  LoadAll()   → walk the directory once at start-up so broken files fail
//                    the deploy instead of the first visitor.
//   •  Register(d) → programmatic definitions (tests, embedded forms).
//
//------------------------------------------------------------------------------

package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AdeptTravel/formstate/internal/cache"
	"github.com/AdeptTravel/formstate/internal/metrics"
	"github.com/AdeptTravel/formstate/internal/schema"
)

// DefaultCapacity bounds the number of compiled definitions kept in memory.
const DefaultCapacity = 256

// Entry is a parsed definition and its compiled schema.
type Entry struct {
	Def    *FormDef
	Schema *schema.Schema
}

// Registry resolves form IDs to entries.
type Registry struct {
	dir string
	log *zap.SugaredLogger
	sfg singleflight.Group
	lru *cache.LRU[string, *Entry]

	// pinned holds Register'd definitions, which have no file to reload from.
	mu     sync.RWMutex
	pinned map[string]*Entry
}

// NewRegistry returns a registry reading from dir.  An empty dir is allowed
// when every form is registered programmatically.  capacity < 1 means
// DefaultCapacity.
func NewRegistry(dir string, capacity int, log *zap.SugaredLogger) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.S()
	}
	return &Registry{
		dir:    dir,
		log:    log,
		lru:    cache.New[string, *Entry](capacity),
		pinned: make(map[string]*Entry),
	}
}

// Get returns the entry for id.  ErrNotFound is returned (wrapped) when no
// file or registration exists.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.pinned[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	if e, ok := r.lru.Get(id); ok {
		return e, nil
	}
	if !ValidID(id) || r.dir == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	v, err, _ := r.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if e, ok := r.lru.Get(id); ok {
			return e, nil
		}
		e, err := r.load(id)
		if err != nil {
			metrics.DefinitionLoadErrorsTotal.Inc()
			return nil, err
		}
		r.lru.Add(id, e)
		metrics.DefinitionLoadTotal.Inc()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Register adds fd, replacing any file-backed definition with the same ID.
func (r *Registry) Register(fd *FormDef) error {
	if err := check(fd, "<registered>"); err != nil {
		return err
	}
	e, err := compile(fd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.pinned[fd.ID] = e
	r.mu.Unlock()
	r.lru.Remove(fd.ID)
	return nil
}

// LoadAll parses every "*.yaml" under the registry directory and returns the
// loaded IDs.  The first bad file aborts the walk.  A missing directory is
// not an error.
func (r *Registry) LoadAll() ([]string, error) {
	if r.dir == "" {
		return nil, nil
	}
	var ids []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(strings.TrimSuffix(rel, ".yaml"))
		e, err := r.load(id)
		if err != nil {
			metrics.DefinitionLoadErrorsTotal.Inc()
			return err
		}
		r.lru.Add(id, e)
		metrics.DefinitionLoadTotal.Inc()
		ids = append(ids, id)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ids, err
	}
	r.log.Infow("form definitions loaded", "dir", r.dir, "count", len(ids))
	return ids, nil
}

// load reads <dir>/<id>.yaml and checks that the declared ID matches the
// path.
func (r *Registry) load(id string) (*Entry, error) {
	path := filepath.Join(r.dir, filepath.FromSlash(id)+".yaml")
	fd, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, err
	}
	if fd.ID != id {
		return nil, fmt.Errorf("form definition %s: id %q does not match path %q", path, fd.ID, id)
	}
	return compile(fd)
}

func compile(fd *FormDef) (*Entry, error) {
	s, err := fd.Schema()
	if err != nil {
		return nil, err
	}
	return &Entry{Def: fd, Schema: s}, nil
}
