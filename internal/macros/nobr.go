package macros

import (
	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/markup"
)

// Nobr returns the <<nobr>> definition, which renders its contents with
// line breaks collapsed into spaces.
func Nobr() *macro.Definition {
	return &macro.Definition{
		Name:        "nobr",
		Container:   true,
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleNobr),
		Description: "Renders its contents without line breaks",
	}
}

func handleNobr(inv *macro.Invocation, out *macro.Output) error {
	scratch := macro.NewOutput()
	if err := inv.Render(inv.Primary(), scratch); err != nil {
		return err
	}
	scratch.MapText(markup.Nobr)
	out.Append(scratch)
	return nil
}
