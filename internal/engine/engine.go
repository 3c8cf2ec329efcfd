// Package engine plays a story: it loads passages and helper scripts,
// renders passages through the macro renderer and records history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/macros"
	"github.com/leapstack-labs/leapstory/internal/markup"
	"github.com/leapstack-labs/leapstory/internal/script"
	starctx "github.com/leapstack-labs/leapstory/internal/starlark"
	"github.com/leapstack-labs/leapstory/internal/state"
	"github.com/leapstack-labs/leapstory/internal/story"
)

// ErrPassageNotFound is returned when a passage does not exist.
var ErrPassageNotFound = errors.New("passage not found")

// ErrNoStateStore is returned by history and save operations when the
// engine runs without a state database.
var ErrNoStateStore = errors.New("no state database configured")

// NobrTag marks passages whose line breaks are collapsed.
const NobrTag = "nobr"

// Config holds engine configuration.
type Config struct {
	// StoryDir is the directory holding Twee source files
	StoryDir string
	// ScriptsDir is the directory holding helper .star files (optional)
	ScriptsDir string
	// StatePath is the SQLite state database; empty disables history and saves
	StatePath string
	// StartPassage overrides the story's start passage
	StartPassage string
	// MaxIterations bounds macro expansions of one render pass
	MaxIterations int
	// Nobr collapses line breaks in every passage
	Nobr bool
	// MaxStates bounds the recorded history
	MaxStates int
	// MaxSlots is the number of save slots
	MaxSlots int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine plays one story against one narrative state. An Engine is not
// safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	cfg    Config

	story    *story.Story
	helpers  *script.Registry
	state    *starctx.State
	macros   *macro.Registry
	renderer *markup.Renderer
	store    *state.SQLiteStore

	current string
	entry   map[string]any // variables as they were when current was entered
}

// New loads the story and helper scripts and opens the state store.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "story_dir", cfg.StoryDir, "scripts_dir", cfg.ScriptsDir)

	s, err := story.Load(ctx, cfg.StoryDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	helpers := script.NewRegistry()
	if cfg.ScriptsDir != "" {
		helpers, err = script.LoadAndRegister(cfg.ScriptsDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load helper scripts: %w", err)
		}
	}

	registry, err := macros.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to register macros: %w", err)
	}

	e := &Engine{
		logger:  logger,
		cfg:     cfg,
		story:   s,
		helpers: helpers,
		macros:  registry,
		state: starctx.NewState(
			starctx.WithHelperRegistry(helpers),
			starctx.WithLogger(logger),
		),
	}
	e.buildRenderer()

	if cfg.StatePath != "" {
		if err := e.openStore(); err != nil {
			return nil, err
		}
	}

	logger.Info("story loaded",
		"title", s.Title,
		"passages", s.Len(),
		"helpers", helpers.Len(),
		"macros", registry.Len())
	return e, nil
}

func (e *Engine) buildRenderer() {
	e.renderer = markup.NewRenderer(e.macros, e.state,
		markup.WithPassages(e.story),
		markup.WithLogger(e.logger),
		markup.WithMaxIterations(e.cfg.MaxIterations),
		markup.WithNobr(e.cfg.Nobr),
	)
}

func (e *Engine) openStore() error {
	if e.cfg.StatePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(e.cfg.StatePath), 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(
		state.WithMaxStates(e.cfg.MaxStates),
		state.WithMaxSlots(e.cfg.MaxSlots),
		state.WithLogger(e.logger),
	)
	if err := store.Open(e.cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate state store: %w", err)
	}
	e.store = store
	return nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Reload re-reads the story sources, keeping variables and history.
func (e *Engine) Reload(ctx context.Context) error {
	s, err := story.Load(ctx, e.cfg.StoryDir, e.logger)
	if err != nil {
		return fmt.Errorf("failed to reload story: %w", err)
	}
	e.story = s
	e.buildRenderer()
	e.logger.Debug("story reloaded", "passages", s.Len())
	return nil
}

// Story returns the loaded story.
func (e *Engine) Story() *story.Story { return e.story }

// State returns the narrative state.
func (e *Engine) State() *starctx.State { return e.state }

// Macros returns the macro registry.
func (e *Engine) Macros() *macro.Registry { return e.macros }

// Helpers returns the helper script registry.
func (e *Engine) Helpers() *script.Registry { return e.helpers }

// Store returns the state store, or nil when none is configured.
func (e *Engine) Store() *state.SQLiteStore { return e.store }

// Current returns the passage being played, or "" before the first play.
func (e *Engine) Current() string { return e.current }

// Start returns the passage a new playthrough begins at.
func (e *Engine) Start() string {
	if e.cfg.StartPassage != "" {
		return e.cfg.StartPassage
	}
	return e.story.Start()
}
