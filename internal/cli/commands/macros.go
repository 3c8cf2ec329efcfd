package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/leapstory/internal/cli/output"
	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/macros"
	"github.com/leapstack-labs/leapstory/internal/script"
	"github.com/spf13/cobra"
)

// MacroInfo is the JSON form of a macro definition.
type MacroInfo struct {
	Name        string   `json:"name"`
	Container   bool     `json:"container"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// MacrosOutput is the JSON form of the macros command.
type MacrosOutput struct {
	Macros  []MacroInfo         `json:"macros"`
	Helpers []*script.ModuleDoc `json:"helpers"`
}

// NewMacrosCommand creates the macros command.
func NewMacrosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "macros",
		Short: "List built-in macros and helper functions",
		Long: `List the built-in macros and the helper functions exported by the
Starlark files in the scripts directory.

Helper files are parsed, not executed.`,
		Example: `  # List macros and helpers
  leapstory macros

  # As JSON
  leapstory macros --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMacros(cmd)
		},
	}
}

func runMacros(cmd *cobra.Command) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	reg, err := macros.NewRegistry()
	if err != nil {
		return err
	}

	var helpers []*script.ModuleDoc
	if info, err := os.Stat(cmdCtx.Cfg.ScriptsDir); err == nil && info.IsDir() {
		helpers, err = script.DescribeDir(cmdCtx.Cfg.ScriptsDir)
		if err != nil {
			return fmt.Errorf("failed to read helpers: %w", err)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newMacrosOutput(reg, helpers))
	}

	r.Header(1, "Macros")
	rows := make([][]string, 0, reg.Len())
	for _, def := range reg.Definitions() {
		rows = append(rows, []string{def.Name, macroKind(def), strings.Join(def.Tags, ", "), def.Description})
	}
	r.Table([]string{"Name", "Kind", "Clauses", "Description"}, rows)

	if len(helpers) == 0 {
		return nil
	}

	r.Println("")
	r.Header(1, "Helpers")
	var hrows [][]string
	for _, mod := range helpers {
		for _, fn := range mod.Functions {
			hrows = append(hrows, []string{mod.Namespace + "." + fn.Signature(), fn.Summary()})
		}
	}
	r.Table([]string{"Function", "Summary"}, hrows)
	return nil
}

func newMacrosOutput(reg *macro.Registry, helpers []*script.ModuleDoc) MacrosOutput {
	out := MacrosOutput{Helpers: helpers}
	if out.Helpers == nil {
		out.Helpers = []*script.ModuleDoc{}
	}
	for _, def := range reg.Definitions() {
		out.Macros = append(out.Macros, MacroInfo{
			Name:        def.Name,
			Container:   def.Container,
			Tags:        def.Tags,
			Description: def.Description,
		})
	}
	return out
}

func macroKind(def *macro.Definition) string {
	if def.Container {
		return "container"
	}
	return "leaf"
}
