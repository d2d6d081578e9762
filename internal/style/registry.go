package style

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bryanchriswhite/stylecam/internal/logger"
)

// Registry is a lookup table of styles keyed by name.
type Registry struct {
	mu     sync.RWMutex
	styles map[string]Style
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{styles: make(map[string]Style)}
}

// DefaultRegistry returns a registry with all built-in styles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Style{
		&IdentityStyle{},
		&CartoonStyle{},
		&SketchStyle{},
		&EdgeStyle{},
		&WatercolorStyle{},
		&ColorAdjustStyle{},
	} {
		if err := r.Register(s); err != nil {
			// Built-in names are unique; a clash here is a programming error.
			panic(err)
		}
	}
	return r
}

// Register adds a style to the registry.
func (r *Registry) Register(s Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.styles[s.Name()]; exists {
		return fmt.Errorf("style %q already registered", s.Name())
	}
	r.styles[s.Name()] = s
	logger.WithComponent("style").Debug().
		Str("style", s.Name()).
		Msg("Registered style")
	return nil
}

// Get returns the style registered under name.
func (r *Registry) Get(name string) (Style, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[name]
	return s, ok
}

// Names returns the registered style names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.styles))
	for name := range r.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
