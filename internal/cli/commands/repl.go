package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapstory/internal/cli/output"
	"github.com/leapstack-labs/leapstory/internal/engine"
	"github.com/leapstack-labs/leapstory/internal/macro"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
	"github.com/spf13/cobra"
)

const replPrompt = "leapstory> "

// REPLOptions holds options for the repl command.
type REPLOptions struct {
	Resume bool
}

// NewREPLCommand creates the interactive repl command.
func NewREPLCommand() *cobra.Command {
	opts := &REPLOptions{}

	cmd := &cobra.Command{
		Use:     "repl",
		Aliases: []string{"play"},
		Short:   "Play the story interactively",
		Long: `Start an interactive session that plays the story.

The session enters the start passage and then reads commands. Lines starting
with a dot are session commands (.help lists them); any other line is
rendered as markup against the current variables.`,
		Example: `  # Start at the beginning
  leapstory repl

  # Continue from the most recent history moment
  leapstory repl --resume`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Resume from the most recent history moment")

	return cmd
}

func runREPL(cmd *cobra.Command, opts *REPLOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session := newPlaySession(cmdCtx)

	historyFile := ""
	if store := cmdCtx.Engine.Store(); store != nil && store.Path() != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(store.Path()), "play_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    session.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	title := cmdCtx.Engine.Story().Title
	if title == "" {
		title = filepath.Base(cmdCtx.Cfg.StoryDir)
	}
	r.Header(1, title)
	r.Muted("Type .help for commands, .quit to exit")
	r.Println("")

	if opts.Resume {
		session.resume()
	} else {
		session.handle(".go " + cmdCtx.Engine.Start())
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if session.handle(line) {
			break
		}
	}
	return nil
}

// playSession executes session commands against one engine.
type playSession struct {
	eng *engine.Engine
	r   *output.Renderer
}

func newPlaySession(cmdCtx *CommandContext) *playSession {
	return &playSession{eng: cmdCtx.Engine, r: cmdCtx.Renderer}
}

// handle runs one input line and reports whether the session should end.
func (s *playSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ".") {
		s.passage("", s.eng.RenderString(line, "repl"))
		return false
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true

	case ".help":
		printPlayHelp(s.r.Writer())

	case ".go":
		if rest == "" {
			s.r.Error("Usage: .go <passage>")
			return false
		}
		out, err := s.eng.Play(rest)
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.passage(rest, out)

	case ".look":
		if s.eng.Current() == "" {
			s.r.Error("no passage has been played")
			return false
		}
		out, err := s.eng.Render(s.eng.Current())
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.passage(s.eng.Current(), out)

	case ".eval":
		v, err := s.eng.Eval(rest)
		if err != nil {
			s.r.Error(starctx.ErrorMessage(err))
			return false
		}
		s.r.Println(v)

	case ".run":
		if err := s.eng.Exec(rest); err != nil {
			s.r.Error(starctx.ErrorMessage(err))
		}

	case ".vars":
		s.vars()

	case ".passages":
		for _, name := range s.eng.Story().Names() {
			s.r.Println(name)
		}

	case ".history":
		moments, err := s.eng.History()
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		_ = renderMoments(s.r, moments)

	case ".save":
		slotText, title, _ := strings.Cut(rest, " ")
		slot, err := strconv.Atoi(slotText)
		if err != nil {
			s.r.Error("Usage: .save <slot> [title]")
			return false
		}
		save, err := s.eng.Save(slot, strings.TrimSpace(title))
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.r.Success("Saved " + formatSave(save))

	case ".load":
		slot, err := strconv.Atoi(rest)
		if err != nil {
			s.r.Error("Usage: .load <slot>")
			return false
		}
		out, err := s.eng.Load(slot)
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.passage(s.eng.Current(), out)

	case ".resume":
		s.resume()

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *playSession) resume() {
	out, err := s.eng.Resume()
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	s.passage(s.eng.Current(), out)
}

func (s *playSession) passage(name string, out *macro.Output) {
	if err := s.r.Passage(name, out); err != nil {
		s.r.Error(err.Error())
	}
}

func (s *playSession) vars() {
	snap, err := s.eng.State().Vars.Snapshot()
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{"$" + name, fmt.Sprint(snap[name])})
	}
	if len(rows) == 0 {
		s.r.Muted("No variables set")
		return
	}
	s.r.Table([]string{"Variable", "Value"}, rows)
}

func (s *playSession) completer() *readline.PrefixCompleter {
	passages := make([]readline.PrefixCompleterInterface, 0, s.eng.Story().Len())
	for _, name := range s.eng.Story().Names() {
		passages = append(passages, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".go", passages...),
		readline.PcItem(".look"),
		readline.PcItem(".eval"),
		readline.PcItem(".run"),
		readline.PcItem(".vars"),
		readline.PcItem(".passages"),
		readline.PcItem(".history"),
		readline.PcItem(".save"),
		readline.PcItem(".load"),
		readline.PcItem(".resume"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
}

func printPlayHelp(w io.Writer) {
	help := `
Commands:
  .go <passage>         Enter a passage (recorded in history)
  .look                 Render the current passage again
  .eval <expr>          Evaluate an expression
  .run <statements>     Execute statements
  .vars                 Show story variables
  .passages             List passages
  .history              Show history moments
  .save <slot> [title]  Save the current passage to a slot
  .load <slot>          Load a save slot
  .resume               Return to the most recent history moment
  .quit / .exit         Exit the session

Any other line is rendered as markup, e.g. <<set $gold += 1>>Gold: <<= $gold>>
`
	_, _ = fmt.Fprintln(w, help)
}
