package macros

import (
	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
)

// Set returns the <<set>> definition, e.g. <<set $gold to $gold + 5>>.
func Set() *macro.Definition {
	return &macro.Definition{
		Name:        "set",
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleExec),
		Description: "Executes statements that assign story variables",
	}
}

// Run returns the <<run>> definition, which executes statements for their
// side effects, e.g. <<run inventory.add($items, "lamp")>>.
func Run() *macro.Definition {
	return &macro.Definition{
		Name:        "run",
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleExec),
		Description: "Executes statements for their side effects",
	}
}

func handleExec(inv *macro.Invocation, _ *macro.Output) error {
	stmt := inv.Args.Full()
	if stmt == "" {
		return inv.Error("no expression specified")
	}
	if err := inv.Env.Eval.ExecStmt(stmt, inv.Pos.File, inv.Pos.Line); err != nil {
		return inv.EvalError(err, "bad evaluation: %s", starctx.ErrorMessage(err))
	}
	return nil
}

// Print returns a printing definition under name. The story runtime
// registers it as <<print>>, <<=>> and <<->>.
func Print(name string) *macro.Definition {
	return &macro.Definition{
		Name:        name,
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handlePrint),
		Description: "Prints the value of an expression",
	}
}

func handlePrint(inv *macro.Invocation, out *macro.Output) error {
	expr := inv.Args.Full()
	if expr == "" {
		return inv.Error("no expression specified")
	}
	v, err := inv.Env.Eval.EvalExpr(expr, inv.Pos.File, inv.Pos.Line)
	if err != nil {
		return inv.EvalError(err, "bad evaluation: %s", starctx.ErrorMessage(err))
	}
	out.WriteString(starctx.Printable(v))
	return nil
}
