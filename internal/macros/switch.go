package macros

import (
	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
)

// Switch returns the <<switch>> definition:
//
//	<<switch $mood>>
//	<<case "happy" "glad">>Smiles.
//	<<case "sad">>Sighs.
//	<<default>>Shrugs.
//	<</switch>>
//
// The expression is evaluated once and the first clause whose values
// contain a strictly equal value, or <<default>>, is rendered.
func Switch() *macro.Definition {
	return &macro.Definition{
		Name:        "switch",
		Container:   true,
		Tags:        []string{"case", "default"},
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleSwitch),
		Description: "Renders the first <<case>> matching an expression, or <<default>>",
	}
}

func handleSwitch(inv *macro.Invocation, out *macro.Output) error {
	expr := inv.Args.Full()
	if expr == "" {
		return inv.Error("no expression specified")
	}

	clauses := inv.Clauses
	if len(clauses) <= 1 {
		return inv.Error("no cases specified")
	}

	for i := 1; i < len(clauses); i++ {
		c := clauses[i]
		switch c.Name {
		case "default":
			if c.Args.Full() != "" {
				return inv.Error("<<default>> does not accept values, invalid: %s", c.Args.Full())
			}
			if i+1 != len(clauses) {
				return inv.Error("<<default>> must be the final case")
			}
		default:
			if c.Args.Full() == "" {
				return inv.Error("no value(s) specified for <<%s>> (#%d)", c.Name, i)
			}
		}
	}

	// Case values are evaluated only once the clause layout is known to be valid.
	for i := 1; i < len(clauses); i++ {
		if clauses[i].Name == "default" {
			continue
		}
		if err := evalCaseArgs(inv, i); err != nil {
			return err
		}
	}

	result, err := inv.Env.Eval.EvalExpr(expr, inv.Pos.File, inv.Pos.Line)
	if err != nil {
		return inv.EvalError(err, "bad evaluation: %s", starctx.ErrorMessage(err))
	}

	for _, c := range clauses[1:] {
		if c.Name != "default" {
			match, err := starctx.ContainsStrict(c.Args.Values, result)
			if err != nil {
				return inv.EvalError(err, "bad evaluation: %s", err.Error())
			}
			if !match {
				continue
			}
		}
		return inv.Render(c, out)
	}

	return nil
}

func evalCaseArgs(inv *macro.Invocation, i int) error {
	c := &inv.Clauses[i]
	values, err := inv.Env.Eval.EvalArgs(c.Args.Raw, c.MarkerPos.File, c.MarkerPos.Line)
	if err != nil {
		return inv.EvalError(err, "unable to parse arguments of <<%s>> (#%d): %s", c.Name, i, starctx.ErrorMessage(err))
	}
	if len(values) == 0 {
		return inv.Error("no value(s) specified for <<%s>> (#%d)", c.Name, i)
	}
	c.Args.Values = values
	return nil
}
