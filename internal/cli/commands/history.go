package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapstory/internal/cli/output"
	"github.com/leapstack-labs/leapstory/internal/engine"
	"github.com/leapstack-labs/leapstory/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Saves bool
	Clear bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded history moments and save slots",
		Long: `Show the moments recorded by 'render --record' and the REPL, oldest first.

Each moment holds the passage entered and the variables as they were on entry.
Only the most recent moments are kept (history.max_states).`,
		Example: `  # Show history
  leapstory history

  # Show save slots
  leapstory history --saves

  # Forget all moments (save slots are kept)
  leapstory history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Saves, "saves", false, "List save slots instead of moments")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete all history moments")
	cmd.MarkFlagsMutuallyExclusive("saves", "clear")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()
	if store == nil {
		return engine.ErrNoStateStore
	}

	switch {
	case opts.Clear:
		if err := store.ClearHistory(); err != nil {
			return err
		}
		cmdCtx.Renderer.Success("History cleared")
		return nil
	case opts.Saves:
		saves, err := store.Slots()
		if err != nil {
			return err
		}
		return renderSaves(cmdCtx.Renderer, saves)
	}

	moments, err := cmdCtx.Engine.History()
	if err != nil {
		return err
	}
	return renderMoments(cmdCtx.Renderer, moments)
}

func renderMoments(r *output.Renderer, moments []*state.Moment) error {
	if r.EffectiveMode() == output.ModeJSON {
		if moments == nil {
			moments = []*state.Moment{}
		}
		return r.JSON(moments)
	}

	if len(moments) == 0 {
		r.Muted("No history recorded")
		return nil
	}

	rows := make([][]string, 0, len(moments))
	for i, m := range moments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Passage,
			strconv.Itoa(len(m.Variables)),
			m.CreatedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"#", "Passage", "Variables", "Entered"}, rows)
	return nil
}

func renderSaves(r *output.Renderer, saves []*state.Save) error {
	if r.EffectiveMode() == output.ModeJSON {
		if saves == nil {
			saves = []*state.Save{}
		}
		return r.JSON(saves)
	}

	if len(saves) == 0 {
		r.Muted("No saves")
		return nil
	}

	rows := make([][]string, 0, len(saves))
	for _, s := range saves {
		rows = append(rows, []string{
			strconv.Itoa(s.Slot),
			s.Title,
			s.Passage,
			s.SavedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"Slot", "Title", "Passage", "Saved"}, rows)
	return nil
}

func formatSave(s *state.Save) string {
	if s.Title == "" {
		return fmt.Sprintf("slot %d (%s)", s.Slot, s.Passage)
	}
	return fmt.Sprintf("slot %d %q (%s)", s.Slot, s.Title, s.Passage)
}
