package starlark

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// Variables is the story-variable store. Expressions reach it through the
// "State" global, so $gold in markup reads and writes State.gold.
// Unset variables read as None.
type Variables struct {
	values map[string]starlark.Value
}

var (
	_ starlark.HasAttrs    = (*Variables)(nil)
	_ starlark.HasSetField = (*Variables)(nil)
)

// NewVariables creates an empty variable store.
func NewVariables() *Variables {
	return &Variables{values: make(map[string]starlark.Value)}
}

// Get returns the named variable.
func (v *Variables) Get(name string) (starlark.Value, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Set assigns the named variable.
func (v *Variables) Set(name string, val starlark.Value) {
	v.values[name] = val
}

// Delete removes the named variable.
func (v *Variables) Delete(name string) {
	delete(v.values, name)
}

// Len returns the number of set variables.
func (v *Variables) Len() int {
	return len(v.values)
}

// Names returns the set variable names, sorted.
func (v *Variables) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot converts the variables to plain Go values.
func (v *Variables) Snapshot() (map[string]any, error) {
	snap := make(map[string]any, len(v.values))
	for name, val := range v.values {
		gv, err := ToGo(val)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		snap[name] = gv
	}
	return snap, nil
}

// Restore replaces the variables with the given plain Go values.
func (v *Variables) Restore(snap map[string]any) error {
	values := make(map[string]starlark.Value, len(snap))
	for name, gv := range snap {
		val, err := GoToStarlark(gv)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		values[name] = val
	}
	v.values = values
	return nil
}

// Starlark value interface

func (v *Variables) String() string {
	var b strings.Builder
	b.WriteString("State(")
	for i, name := range v.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(v.values[name].String())
	}
	b.WriteString(")")
	return b.String()
}

func (v *Variables) Type() string         { return "State" }
func (v *Variables) Truth() starlark.Bool { return starlark.True }

// Freeze is a no-op: story variables stay writable for the whole session.
func (v *Variables) Freeze() {}

func (v *Variables) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: State")
}

// Attr returns the named variable, or None when it is unset.
func (v *Variables) Attr(name string) (starlark.Value, error) {
	if val, ok := v.values[name]; ok {
		return val, nil
	}
	return starlark.None, nil
}

func (v *Variables) AttrNames() []string {
	return v.Names()
}

// SetField assigns the named variable.
func (v *Variables) SetField(name string, val starlark.Value) error {
	v.values[name] = val
	return nil
}
