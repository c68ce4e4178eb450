// Package storage holds the route library: reference routes keyed by name.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/composer"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/parser"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// SourceAPI marks routes imported over the API.
const SourceAPI = "api"

// Store defines the interface for the route library.
type Store interface {
	Import(routes models.RouteSet, source string) (string, error)
	Get(name string) (models.ReferenceRoute, *models.RouteInfo, error)
	List() []*models.RouteInfo
	Delete(name string) error
	Snapshot() models.RouteSet
	Clear()
}

type entry struct {
	route models.ReferenceRoute
	info  *models.RouteInfo
}

// LocalStore implements Store in memory, optionally seeded from a directory
// of route set files.
type LocalStore struct {
	mu     sync.RWMutex
	dir    string
	routes map[string]entry
}

// NewLocalStore creates a new LocalStore. An empty dir disables LoadDir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating routes directory: %w", err)
		}
	}

	return &LocalStore{
		dir:    dir,
		routes: make(map[string]entry),
	}, nil
}

// LoadDir imports every route set file in the store directory whose extension
// has a codec. Files are read in name order, so later files override earlier
// ones. It returns the number of routes loaded.
func (s *LocalStore) LoadDir() (int, error) {
	if s.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading routes directory: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if _, err := parser.GetGlobalRegistry().FindCodec(path); err != nil {
			log.Debugf("storage: skipping %s: %v", path, err)
			continue
		}
		routes, err := parser.ParseRouteSet(path)
		if err != nil {
			return loaded, fmt.Errorf("loading %s: %w", path, err)
		}
		if _, err := s.Import(routes, path); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", path, err)
		}
		loaded += len(routes)
	}
	return loaded, nil
}

// Import validates every route of the set and stores them under one new
// revision id. Nothing is stored when any route is invalid.
func (s *LocalStore) Import(routes models.RouteSet, source string) (string, error) {
	if len(routes) == 0 {
		return "", wallerr.Validationf("", "route set is empty")
	}
	revision := uuid.New().String()
	now := time.Now()

	staged := make(map[string]entry, len(routes))
	for name, route := range routes {
		if name == "" {
			return "", wallerr.Validationf(name, "route name must not be empty")
		}
		if _, err := composer.RouteHolds(route); err != nil {
			return "", fmt.Errorf("route %q: %w", name, err)
		}
		staged[name] = entry{
			route: route,
			info: &models.RouteInfo{
				Name:       name,
				Color:      route.Color,
				Holds:      len(route.Holds),
				Zones:      len(route.SmearingZones),
				Revision:   revision,
				Source:     source,
				ImportedAt: now,
			},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range staged {
		s.routes[name] = e
	}
	log.Infof("storage: imported %d routes from %s (revision %s)", len(staged), source, revision)
	return revision, nil
}

// Get retrieves a route by name.
func (s *LocalStore) Get(name string) (models.ReferenceRoute, *models.RouteInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.routes[name]
	if !ok {
		return models.ReferenceRoute{}, nil, wallerr.Lookupf(name, "route not found: %s", name)
	}
	info := *e.info
	return e.route, &info, nil
}

// List returns route metadata sorted by name.
func (s *LocalStore) List() []*models.RouteInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.RouteInfo, 0, len(s.routes))
	for _, e := range s.routes {
		info := *e.info
		list = append(list, &info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Delete removes a route from the library.
func (s *LocalStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[name]; !ok {
		return wallerr.Lookupf(name, "route not found: %s", name)
	}
	delete(s.routes, name)
	return nil
}

// Snapshot returns a copy of the library suitable for composition.
func (s *LocalStore) Snapshot() models.RouteSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(models.RouteSet, len(s.routes))
	for name, e := range s.routes {
		set[name] = e.route
	}
	return set
}

// Clear drops every route.
func (s *LocalStore) Clear() {
	s.mu.Lock()
	s.routes = make(map[string]entry)
	s.mu.Unlock()
}

// Merge overlays inline routes on a library snapshot; inline routes win.
func Merge(library, inline models.RouteSet) models.RouteSet {
	out := make(models.RouteSet, len(library)+len(inline))
	for name, r := range library {
		out[name] = r
	}
	for name, r := range inline {
		out[name] = r
	}
	return out
}
