package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapstory/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new story project",
		Long: `Initialize a new story project with a starter story and configuration.

This creates:
  - story/ directory with a Twee source file
  - scripts/ directory with a Starlark helper module
  - leapstory.yaml configuration file`,
		Example: `  # Initialize in current directory
  leapstory init

  # Initialize in a new directory
  leapstory init my-story

  # Force overwrite existing files
  leapstory init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	if err := copyTemplate("story", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles("story")
	for _, f := range files {
		r.Muted("  " + f)
	}

	r.Println("")
	r.Success("Story project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Write passages in story/*.twee")
	r.Println("  2. Run 'leapstory render' to render the start passage")
	r.Println("  3. Run 'leapstory repl' to play interactively")

	return nil
}
