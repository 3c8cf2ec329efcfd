package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapstory/internal/cli/output"
	"github.com/leapstack-labs/leapstory/internal/engine"
	"github.com/spf13/cobra"
)

// CheckOutput is the JSON form of the check command.
type CheckOutput struct {
	Passages int                 `json:"passages"`
	Includes int                 `json:"includes"`
	Issues   []output.ErrorInfo  `json:"issues"`
	Graph    map[string][]string `json:"include_graph"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check passages for markup problems without rendering",
		Long: `Parse every passage and report problems that would render as error markers:

  - malformed or unclosed macro tags
  - clause tags used outside their container
  - unknown macros
  - includes of passages that do not exist
  - include cycles

Nothing is evaluated, so errors that depend on variables are not reported.
Exits with an error when issues are found.`,
		Example: `  # Check the story
  leapstory check

  # As JSON
  leapstory check --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	report := cmdCtx.Engine.Check()
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(newCheckOutput(cmdCtx.Engine, report)); err != nil {
			return err
		}
	} else {
		renderCheck(r, report)
	}

	if len(report.Issues) > 0 {
		return fmt.Errorf("check found %d issue(s)", len(report.Issues))
	}
	return nil
}

func newCheckOutput(eng *engine.Engine, report *engine.CheckReport) CheckOutput {
	out := CheckOutput{
		Passages: report.Passages,
		Includes: report.Includes,
		Issues:   []output.ErrorInfo{},
		Graph:    make(map[string][]string),
	}
	for _, issue := range report.Issues {
		out.Issues = append(out.Issues, output.NewErrorInfo(issue.Err))
	}
	for _, name := range eng.Story().Names() {
		if inc := report.Graph.Includes(name); len(inc) > 0 {
			out.Graph[name] = inc
		}
	}
	return out
}

func renderCheck(r *output.Renderer, report *engine.CheckReport) {
	summary := fmt.Sprintf("%d passages, %d includes", report.Passages, report.Includes)

	if len(report.Issues) == 0 {
		r.Success("No issues found (" + summary + ")")
		return
	}

	rows := make([][]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		rows = append(rows, []string{
			issue.Err.Pos.String(),
			issue.Err.Kind.String(),
			issue.Err.Error(),
		})
	}
	r.Table([]string{"Position", "Kind", "Message"}, rows)
	r.Println("")
	r.Muted(summary)
}
