package macros

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstory/internal/macro"
)

// Silent returns the <<silent>> definition. Its contents are rendered for
// their side effects only; errors raised inside are reported as one error
// of the <<silent>> invocation.
func Silent() *macro.Definition {
	return &macro.Definition{
		Name:        "silent",
		Container:   true,
		SkipArgs:    macro.SkipAll,
		Handler:     macro.HandlerFunc(handleSilent),
		Description: "Runs its contents for their side effects and discards the output",
	}
}

func handleSilent(inv *macro.Invocation, _ *macro.Output) error {
	scratch := macro.NewOutput()
	if err := inv.Render(inv.Primary(), scratch); err != nil {
		return err
	}

	errs := scratch.Errors()
	if len(errs) == 0 {
		return nil
	}

	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}

	e := inv.Error("%s", aggregateMessage(msgs))
	e.Kind = macro.KindAggregated
	return e
}

func aggregateMessage(msgs []string) string {
	if len(msgs) == 1 {
		return fmt.Sprintf("error within contents (%s)", msgs[0])
	}
	return fmt.Sprintf("%d errors within contents (%s)", len(msgs), strings.Join(msgs, "; "))
}
