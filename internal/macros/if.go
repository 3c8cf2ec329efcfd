package macros

import (
	"fmt"

	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
)

// If returns the <<if>>/<<elseif>>/<<else>> definition. Conditions are
// evaluated in order and the first truthy clause is rendered.
func If() *macro.Definition {
	return &macro.Definition{
		Name:        "if",
		Container:   true,
		Tags:        []string{"elseif", "else"},
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleIf),
		Description: "Renders the first clause whose condition is true",
	}
}

func handleIf(inv *macro.Invocation, out *macro.Output) error {
	clauses := inv.Clauses

	for i, c := range clauses {
		if c.Name == "else" {
			if c.Args.Full() != "" {
				return inv.Error("<<else>> does not accept a conditional expression (perhaps you meant to use <<elseif>>), invalid: %s", c.Args.Full())
			}
			if i+1 != len(clauses) {
				return inv.Error("<<else>> must be the final clause")
			}
			continue
		}
		if c.Args.Full() == "" {
			return inv.Error("no conditional expression specified for <<%s>> clause%s", c.Name, clauseIndex(i))
		}
	}

	for i, c := range clauses {
		if c.Name != "else" {
			v, err := inv.Env.Eval.EvalExpr(c.Args.Full(), c.Pos.File, c.Pos.Line)
			if err != nil {
				return inv.EvalError(err, "bad conditional expression in <<%s>> clause%s: %s", c.Name, clauseIndex(i), starctx.ErrorMessage(err))
			}
			if !v.Truth() {
				continue
			}
		}
		return inv.Render(c, out)
	}

	return nil
}

func clauseIndex(i int) string {
	if i == 0 {
		return ""
	}
	return fmt.Sprintf(" (#%d)", i)
}
