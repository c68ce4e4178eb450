package holdsvg

import (
	"embed"
	"errors"
	"io/fs"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

//go:embed templates/*.svg
var embedded embed.FS

// Loader reads raw template files by name.
type Loader interface {
	Load(name string) ([]byte, error)
}

// FSLoader loads templates from a file system.
type FSLoader struct {
	FS fs.FS
}

// Load reads name from the file system. A missing file is a lookup error.
func (l FSLoader) Load(name string) ([]byte, error) {
	data, err := fs.ReadFile(l.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wallerr.Lookupf(name, "hold template %q not found", name)
	}
	return data, err
}

// DefaultLoader serves the built-in templates.
func DefaultLoader() Loader {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return FSLoader{FS: sub}
}

// Cache parses each template file at most once per lifetime between Clear
// calls. It is safe for concurrent use.
type Cache struct {
	loader Loader

	mu      sync.RWMutex
	entries map[string]*Template
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader Loader) *Cache {
	if loader == nil {
		loader = DefaultLoader()
	}
	return &Cache{loader: loader, entries: make(map[string]*Template)}
}

// Get returns the parsed template for a hold type.
func (c *Cache) Get(spec holdtype.Spec) (*Template, error) {
	name := spec.TemplateFile()

	c.mu.RLock()
	t, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	data, err := c.loader.Load(name)
	if err != nil {
		return nil, err
	}
	parsed, err := Parse(name, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent Get may have won; all parses of one file are equal.
	if t, ok := c.entries[name]; ok {
		return t, nil
	}
	c.entries[name] = parsed
	log.Debugf("holdsvg: cached template %s for %s (%gx%g, %d aux, %d labels)",
		name, spec.Name, parsed.Width, parsed.Height, len(parsed.aux), len(parsed.labels))
	return parsed, nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached template.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Template)
	c.mu.Unlock()
}
