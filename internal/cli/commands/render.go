package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/story"
	"github.com/spf13/cobra"
)

const watchDebounce = 100 * time.Millisecond

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Record bool
	Resume bool
	Markup string
	Watch  bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render [passage]",
		Short: "Render a passage with macros expanded",
		Long: `Render a passage with all macros expanded.

Without a passage name the story's start passage is rendered. Macro
errors are rendered inline as error markers and never abort the pass.

Output adapts to environment:
  - Terminal: Styled text with highlighted error markers
  - Piped/Scripted: Markdown
  - --output json: Text and error list as JSON`,
		Example: `  # Render the start passage
  leapstory render

  # Render a passage and record it in history
  leapstory render Hall --record

  # Continue from the most recent history moment
  leapstory render --resume

  # Render inline markup against the story
  leapstory render --markup '<<set $gold to 3>>Gold: <<= $gold>>'

  # Re-render whenever story files change
  leapstory render Hall --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runRender(cmd, name, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "Record the visit as a history moment")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Resume from the most recent history moment")
	cmd.Flags().StringVar(&opts.Markup, "markup", "", "Render inline markup instead of a passage")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-render when story files change")

	cmd.MarkFlagsMutuallyExclusive("resume", "markup")
	cmd.MarkFlagsMutuallyExclusive("resume", "watch")

	return cmd
}

func runRender(cmd *cobra.Command, name string, opts *RenderOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if name == "" && opts.Markup == "" && !opts.Resume {
		name = cmdCtx.Engine.Start()
	}

	if err := renderOnce(cmdCtx, name, opts); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchStory(ctx, cmdCtx, func() error {
		if err := cmdCtx.Engine.Reload(ctx); err != nil {
			return err
		}
		return renderOnce(cmdCtx, name, opts)
	})
}

func renderOnce(cmdCtx *CommandContext, name string, opts *RenderOptions) error {
	eng := cmdCtx.Engine

	var (
		out *macro.Output
		err error
	)
	switch {
	case opts.Markup != "":
		name = ""
		out = eng.RenderString(opts.Markup, "markup")
	case opts.Resume:
		out, err = eng.Resume()
		name = eng.Current()
	case opts.Record:
		out, err = eng.Play(name)
	default:
		out, err = eng.Render(name)
	}
	if err != nil {
		return fmt.Errorf("failed to render passage: %w", err)
	}

	if n := len(out.Errors()); n > 0 {
		cmdCtx.Logger.Debug("rendered with macro errors", "passage", name, "errors", n)
	}
	return cmdCtx.Renderer.Passage(name, out)
}

// watchStory calls rebuild after story or helper files change, until ctx
// is done. Rebuilds run on the calling goroutine.
func watchStory(ctx context.Context, cmdCtx *CommandContext, rebuild func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, cmdCtx.Cfg.StoryDir); err != nil {
		return fmt.Errorf("failed to watch story dir: %w", err)
	}
	if info, err := os.Stat(cmdCtx.Cfg.ScriptsDir); err == nil && info.IsDir() {
		if err := watchDir(watcher, cmdCtx.Cfg.ScriptsDir); err != nil {
			return fmt.Errorf("failed to watch scripts dir: %w", err)
		}
	}

	r := cmdCtx.Renderer
	r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cmdCtx.Cfg.StoryDir))

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !story.IsSourceFile(event.Name) && filepath.Ext(event.Name) != ".star" {
				continue
			}
			changed = event.Name
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			cmdCtx.Logger.Debug("change detected", "file", changed)
			r.Muted(fmt.Sprintf("Change detected: %s", filepath.Base(changed)))
			if err := rebuild(); err != nil {
				r.Error(err.Error())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && len(info.Name()) > 0 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
