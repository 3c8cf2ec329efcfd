package macro

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Handler implements a macro.
type Handler interface {
	Handle(inv *Invocation, out *Output) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(inv *Invocation, out *Output) error

// Handle calls f(inv, out).
func (f HandlerFunc) Handle(inv *Invocation, out *Output) error {
	return f(inv, out)
}

// SkipAll, used as Definition.SkipArgs, passes every clause's argument
// text through unevaluated.
var SkipAll = []string{"*"}

// Definition is one entry of the dispatch table.
type Definition struct {
	Name string

	// Container macros own a body closed by <</name>>. Tags lists the
	// sibling clause names recognised inside that body.
	Container bool
	Tags      []string

	// SkipArgs lists the clause names (the macro's own name for the
	// primary clause) whose argument text is passed through raw.
	SkipArgs []string

	Handler Handler

	// Description is shown by macro listings.
	Description string
}

// Skips reports whether the arguments of the named clause are left raw.
func (d *Definition) Skips(clause string) bool {
	for _, s := range d.SkipArgs {
		if s == "*" || s == clause {
			return true
		}
	}
	return false
}

// HasTag reports whether name is a recognised sibling clause of d.
func (d *Definition) HasTag(name string) bool {
	return slices.Contains(d.Tags, name)
}

// RegistryError reports a conflicting registration.
type RegistryError struct {
	Name    string
	Message string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("macro <<%s>>: %s", e.Name, e.Message)
}

// Registry maps macro names to their definitions.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	parents map[string][]string // clause tag -> container names declaring it
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:    make(map[string]*Definition),
		parents: make(map[string][]string),
	}
}

// Add registers a definition. Names must be unique and must not collide
// with a clause tag of another macro.
func (r *Registry) Add(def *Definition) error {
	if def == nil || def.Name == "" {
		return &RegistryError{Message: "definition has no name"}
	}
	if def.Handler == nil {
		return &RegistryError{Name: def.Name, Message: "definition has no handler"}
	}
	if len(def.Tags) > 0 && !def.Container {
		return &RegistryError{Name: def.Name, Message: "only container macros may declare clause tags"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[def.Name]; ok {
		return &RegistryError{Name: def.Name, Message: "already exists"}
	}
	if _, ok := r.parents[def.Name]; ok {
		return &RegistryError{Name: def.Name, Message: "name is already used as a clause tag"}
	}
	for _, tag := range def.Tags {
		if _, ok := r.defs[tag]; ok {
			return &RegistryError{Name: def.Name, Message: fmt.Sprintf("clause tag <<%s>> is already a macro", tag)}
		}
	}

	r.defs[def.Name] = def
	for _, tag := range def.Tags {
		r.parents[tag] = append(r.parents[tag], def.Name)
	}
	return nil
}

// AddAll registers definitions in order, stopping at the first error.
func (r *Registry) AddAll(defs ...*Definition) error {
	for _, def := range defs {
		if err := r.Add(def); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether a macro is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Parents returns the containers that declare name as a clause tag.
func (r *Registry) Parents(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.parents[name])
}

// Len returns the number of registered macros.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Names returns the registered macro names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the registered definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	names := r.Names()
	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		def, _ := r.Lookup(name)
		defs = append(defs, def)
	}
	return defs
}
