package macros

import (
	"github.com/leapstack-labs/leapstory/internal/macro"
	"go.starlark.net/starlark"
)

// Include returns the <<include>> definition, which renders the named
// passage in place: <<include "Inventory">>.
func Include() *macro.Definition {
	return &macro.Definition{
		Name:        "include",
		Handler:     macro.HandlerFunc(handleInclude),
		Description: "Renders another passage in place",
	}
}

func handleInclude(inv *macro.Invocation, out *macro.Output) error {
	if inv.Args.Len() == 0 {
		return inv.Error("no passage specified")
	}

	name, ok := starlark.AsString(inv.Args.Values[0])
	if !ok {
		name = inv.Args.Values[0].String()
	}

	if inv.Env.Passages == nil {
		return inv.Error("passage %q does not exist", name)
	}
	text, ok := inv.Env.Passages.Passage(name)
	if !ok {
		return inv.Error("passage %q does not exist", name)
	}

	inv.Logger().Debug("including passage", "passage", name, "from", inv.Pos.String())
	return inv.Env.Renderer.Render(text, macro.Position{File: name, Line: 1, Column: 1}, out)
}
