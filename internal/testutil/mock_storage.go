// mock_storage.go - In-memory route store for handler tests
package testutil

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/storage"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// MockStorage implements storage.Store without validation.
type MockStorage struct {
	mu       sync.RWMutex
	routes   map[string]models.ReferenceRoute
	infos    map[string]*models.RouteInfo
	revision int

	// ImportErr, when set, is returned by Import.
	ImportErr error
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		routes: make(map[string]models.ReferenceRoute),
		infos:  make(map[string]*models.RouteInfo),
	}
}

func (m *MockStorage) Import(routes models.RouteSet, source string) (string, error) {
	if m.ImportErr != nil {
		return "", m.ImportErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revision++
	rev := fmt.Sprintf("test-rev-%d", m.revision)
	for name, r := range routes {
		m.routes[name] = r
		m.infos[name] = &models.RouteInfo{
			Name: name, Color: r.Color, Holds: len(r.Holds), Zones: len(r.SmearingZones),
			Revision: rev, Source: source,
		}
	}
	return rev, nil
}

func (m *MockStorage) Get(name string) (models.ReferenceRoute, *models.RouteInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[name]
	if !ok {
		return models.ReferenceRoute{}, nil, wallerr.Lookupf(name, "route not found: %s", name)
	}
	info := *m.infos[name]
	return r, &info, nil
}

func (m *MockStorage) List() []*models.RouteInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*models.RouteInfo
	for _, info := range m.infos {
		c := *info
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (m *MockStorage) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[name]; !ok {
		return errors.New("route not found")
	}
	delete(m.routes, name)
	delete(m.infos, name)
	return nil
}

func (m *MockStorage) Snapshot() models.RouteSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(models.RouteSet, len(m.routes))
	for k, v := range m.routes {
		set[k] = v
	}
	return set
}

func (m *MockStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]models.ReferenceRoute)
	m.infos = make(map[string]*models.RouteInfo)
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddRoute stores a route directly.
func (m *MockStorage) AddRoute(name string, r models.ReferenceRoute) {
	_, _ = m.Import(models.RouteSet{name: r}, "test")
}

// GetRouteCount returns the number of stored routes.
func (m *MockStorage) GetRouteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.routes)
}
