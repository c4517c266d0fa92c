package action

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/omniflow/omniflow/internal/catalogue"
)

// ErrUnknownAction is returned by New for action names with no registered
// constructor.
var ErrUnknownAction = errors.New("action: no constructor registered")

// Factory builds an Invocation from a resolved name→value parameter map.
// A factory may reject the map (for example a malformed value), in which
// case the rule-action it came from is skipped.
type Factory func(params map[string]string) (*Invocation, error)

// Registry maps action kind names to their constructors.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a constructor. Panics on duplicate name to surface
// misconfiguration early.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("action registry: duplicate constructor for %q", name))
	}
	r.factories[name] = f
}

// New constructs an invocation for the named action kind.
func (r *Registry) New(name string, params map[string]string) (*Invocation, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return f(params)
}

// Names returns all action kinds with a registered constructor.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}

// Validate cross-checks the registry against the capability catalogue at
// startup: every catalogued action kind must have a constructor. This turns
// an unsupported action name into a load-time error instead of a per-event
// resolution failure.
func (r *Registry) Validate(cat *catalogue.Catalogue) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, a := range cat.Actions() {
		if _, ok := r.factories[a.Name]; !ok {
			missing = append(missing, fmt.Sprintf("%q", a.Name))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("action registry: catalogued actions without constructors: %s",
			strings.Join(missing, ", "))
	}
	return nil
}
