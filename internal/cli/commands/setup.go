// Package commands implements the leapstory CLI subcommands.
package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leapstory/internal/cli/output"
	"github.com/leapstack-labs/leapstory/internal/config"
	"github.com/leapstack-labs/leapstory/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(cmd.Context(), EngineConfig(cmdCtx.Cfg, cmdCtx.Logger))
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read configuration or the filesystem.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// EngineConfig maps settings onto the engine configuration.
func EngineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	return engine.Config{
		StoryDir:      cfg.StoryDir,
		ScriptsDir:    cfg.ScriptsDir,
		StatePath:     cfg.StatePath,
		StartPassage:  cfg.StartPassage,
		MaxIterations: cfg.Macros.MaxLoopIterations,
		Nobr:          cfg.Passages.Nobr,
		MaxStates:     cfg.History.MaxStates,
		MaxSlots:      cfg.Saves.MaxSlots,
		Logger:        logger,
	}
}
