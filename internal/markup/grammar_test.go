package markup

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
	"github.com/stretchr/testify/require"
)

func nop(*macro.Invocation, *macro.Output) error { return nil }

// testRegistry builds a small grammar exercising every kind of macro the
// renderer distinguishes.
func testRegistry(t *testing.T) *macro.Registry {
	t.Helper()
	reg := macro.NewRegistry()
	require.NoError(t, reg.AddAll(
		&macro.Definition{
			Name:     "echo",
			SkipArgs: macro.SkipAll,
			Handler: macro.HandlerFunc(func(inv *macro.Invocation, out *macro.Output) error {
				out.WriteString(inv.Args.Full())
				return nil
			}),
		},
		&macro.Definition{
			Name: "val",
			Handler: macro.HandlerFunc(func(inv *macro.Invocation, out *macro.Output) error {
				parts := make([]string, len(inv.Args.Values))
				for i, v := range inv.Args.Values {
					parts[i] = starctx.Printable(v)
				}
				out.WriteString(strings.Join(parts, ","))
				return nil
			}),
		},
		&macro.Definition{
			Name:      "wrap",
			Container: true,
			SkipArgs:  macro.SkipAll,
			Handler: macro.HandlerFunc(func(inv *macro.Invocation, out *macro.Output) error {
				out.WriteString("[")
				if err := inv.Render(inv.Primary(), out); err != nil {
					return err
				}
				out.WriteString("]")
				return nil
			}),
		},
		&macro.Definition{
			Name:      "box",
			Container: true,
			Tags:      []string{"part"},
			Handler: macro.HandlerFunc(func(inv *macro.Invocation, out *macro.Output) error {
				for i, c := range inv.Clauses {
					if i > 0 {
						out.WriteString("|")
					}
					if err := inv.Render(c, out); err != nil {
						return err
					}
				}
				return nil
			}),
		},
		&macro.Definition{Name: "alt", Container: true, Tags: []string{"part"}, Handler: macro.HandlerFunc(nop)},
		&macro.Definition{Name: "cond", Container: true, Tags: []string{"otherwise"}, SkipArgs: macro.SkipAll, Handler: macro.HandlerFunc(nop)},
		&macro.Definition{
			Name: "boom",
			Handler: macro.HandlerFunc(func(*macro.Invocation, *macro.Output) error {
				panic("kaboom")
			}),
		},
		&macro.Definition{
			Name: "recurse",
			Handler: macro.HandlerFunc(func(inv *macro.Invocation, out *macro.Output) error {
				out.WriteString(".")
				return inv.Env.Renderer.Render("<<recurse>>", inv.Pos, out)
			}),
		},
	))
	return reg
}
