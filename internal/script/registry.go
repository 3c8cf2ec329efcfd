package script

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.starlark.net/starlark"
)

// ReservedNamespaces are global names owned by the story-script runtime.
// A helper file may not use one of them as its namespace.
var ReservedNamespaces = []string{
	"State",
	"true",
	"false",
	"null",
	"undefined",
	"either",
	"random",
}

// RegistryError reports a namespace that cannot be registered.
type RegistryError struct {
	Namespace string
	Message   string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("helper namespace %q: %s", e.Namespace, e.Message)
}

// Registry holds loaded helper modules keyed by namespace.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*LoadedModule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*LoadedModule)}
}

// Register adds a module. Reserved and duplicate namespaces are rejected.
func (r *Registry) Register(module *LoadedModule) error {
	for _, reserved := range ReservedNamespaces {
		if module.Namespace == reserved {
			return &RegistryError{Namespace: module.Namespace, Message: "namespace is reserved"}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.modules[module.Namespace]; ok {
		return &RegistryError{
			Namespace: module.Namespace,
			Message:   fmt.Sprintf("already defined by %s", existing.Path),
		}
	}

	r.modules[module.Namespace] = module
	return nil
}

// RegisterAll registers modules in order, stopping at the first error.
func (r *Registry) RegisterAll(modules []*LoadedModule) error {
	for _, m := range modules {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether namespace is registered.
func (r *Registry) Has(namespace string) bool {
	return r.Get(namespace) != nil
}

// Get returns the module registered under namespace, or nil.
func (r *Registry) Get(namespace string) *LoadedModule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[namespace]
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Namespaces returns the registered namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToStarlarkDict exposes each module as a global with attribute access,
// e.g. inventory.has("lamp").
func (r *Registry) ToStarlarkDict() starlark.StringDict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dict := make(starlark.StringDict, len(r.modules))
	for name, m := range r.modules {
		dict[name] = &starlarkModule{name: name, exports: m.Exports}
	}
	return dict
}

// LoadAndRegister loads every helper file in dir into a new registry.
// A missing directory yields an empty registry.
func LoadAndRegister(dir string, logger *slog.Logger) (*Registry, error) {
	modules, err := NewLoader(dir, logger).Load()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	if err := registry.RegisterAll(modules); err != nil {
		return nil, err
	}
	return registry, nil
}

// starlarkModule exposes a helper module's exports as attributes.
type starlarkModule struct {
	name    string
	exports starlark.StringDict
}

var _ starlark.HasAttrs = (*starlarkModule)(nil)

func (m *starlarkModule) String() string        { return fmt.Sprintf("<module %s>", m.name) }
func (m *starlarkModule) Type() string          { return "module" }
func (m *starlarkModule) Freeze()               { m.exports.Freeze() }
func (m *starlarkModule) Truth() starlark.Bool  { return starlark.True }
func (m *starlarkModule) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: module") }

func (m *starlarkModule) Attr(name string) (starlark.Value, error) {
	if v, ok := m.exports[name]; ok {
		return v, nil
	}
	return nil, starlark.NoSuchAttrError(fmt.Sprintf("module %s has no attribute %s", m.name, name))
}

func (m *starlarkModule) AttrNames() []string {
	return m.exports.Keys()
}
