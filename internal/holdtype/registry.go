// Package holdtype is the single source of truth for per-type hold properties:
// display size, intrinsic orientation, label placement and arrow display.
package holdtype

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/speedwall-planner/backend/internal/wallerr"
)

// Spec describes one hold type.
type Spec struct {
	Name string `json:"name" yaml:"name"`
	// Width and Height are the display size in millimeters at scale 1.
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	// DefaultOrientation is the bearing in degrees (0 = +X, 90 = up) the
	// template's directional indicator points to before rotation.
	DefaultOrientation float64 `json:"defaultOrientation" yaml:"defaultOrientation"`
	// LabelMargin is the gap in millimeters between the hold and a fallback label.
	LabelMargin float64 `json:"labelMargin" yaml:"labelMargin"`
	ShowArrow   bool    `json:"showArrow" yaml:"showArrow"`
	// Template is the template file name; "<name lowercased>.svg" when empty.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
}

var tagPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_-]*$`)

// NormalizeTag uppercases and validates a hold type tag.
func NormalizeTag(tag string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(tag))
	if !tagPattern.MatchString(t) {
		return "", wallerr.Validationf(tag, "invalid hold type %q: must start with a letter and contain only letters, digits, '-' or '_'", tag)
	}
	return t, nil
}

// TemplateFile returns the template file name for the spec.
func (s Spec) TemplateFile() string {
	if s.Template != "" {
		return s.Template
	}
	return strings.ToLower(s.Name) + ".svg"
}

// Validate checks that the spec is usable for rendering.
func (s Spec) Validate() error {
	if _, err := NormalizeTag(s.Name); err != nil {
		return err
	}
	for _, v := range []float64{s.Width, s.Height, s.DefaultOrientation, s.LabelMargin} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return wallerr.Validationf(s.Name, "hold type %s: dimensions, orientation and label margin must be finite numbers", s.Name)
		}
	}
	if s.Width <= 0 || s.Height <= 0 {
		return wallerr.Validationf(s.Name, "hold type %s: width and height must be positive (got %gx%g)", s.Name, s.Width, s.Height)
	}
	if s.LabelMargin < 0 {
		return wallerr.Validationf(s.Name, "hold type %s: label margin must not be negative", s.Name)
	}
	return nil
}

// Builtin returns the default hold types.
func Builtin() []Spec {
	return []Spec{
		{Name: "BIG", Width: 400, Height: 345, DefaultOrientation: 90, LabelMargin: 40, ShowArrow: false},
		{Name: "FOOT", Width: 70, Height: 78, DefaultOrientation: 90, LabelMargin: 25, ShowArrow: true},
		{Name: "STOP", Width: 250, Height: 250, DefaultOrientation: 90, LabelMargin: 30, ShowArrow: false},
	}
}

// Registry maps hold type tags to their specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates a registry holding specs.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry creates a registry with the built-in types.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(fmt.Sprintf("holdtype: invalid built-in spec: %v", err))
	}
	return r
}

// Register adds or replaces a spec.
func (r *Registry) Register(s Spec) error {
	tag, err := NormalizeTag(s.Name)
	if err != nil {
		return err
	}
	s.Name = tag
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[tag] = s
	return nil
}

// Lookup returns the spec for tag.
func (r *Registry) Lookup(tag string) (Spec, error) {
	t, err := NormalizeTag(tag)
	if err != nil {
		return Spec{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[t]
	if !ok {
		return Spec{}, wallerr.Lookupf(tag, "unknown hold type %q (known: %s)", tag, strings.Join(r.namesLocked(), ", "))
	}
	return s, nil
}

// List returns all specs sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.specs))
	for _, name := range r.namesLocked() {
		out = append(out, r.specs[name])
	}
	return out
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
