// Package config provides the settings registry for leapstory.
//
// Settings are layered with koanf, lowest to highest precedence:
// built-in defaults, leapstory.yaml, LEAPSTORY_ environment variables and
// explicitly set command-line flags.
package config

// MacrosConfig holds macro engine settings.
type MacrosConfig struct {
	// MaxLoopIterations bounds macro expansions within one render pass.
	MaxLoopIterations int `koanf:"max_loop_iterations"`

	// TypeSkipKey is the key that skips typing animations. It is carried
	// for story compatibility; no renderer in this repository animates text.
	TypeSkipKey string `koanf:"type_skip_key"`
}

// PassagesConfig holds passage rendering settings.
type PassagesConfig struct {
	// Nobr collapses line breaks in every rendered passage.
	Nobr bool `koanf:"nobr"`
}

// HistoryConfig holds history settings.
type HistoryConfig struct {
	MaxStates int `koanf:"max_states"`
}

// SavesConfig holds save slot settings.
type SavesConfig struct {
	MaxSlots int `koanf:"max_slots"`
}

// Config holds all configuration options.
type Config struct {
	StoryDir     string         `koanf:"story_dir"`
	ScriptsDir   string         `koanf:"scripts_dir"`
	StatePath    string         `koanf:"state_path"`
	StartPassage string         `koanf:"start_passage"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Macros       MacrosConfig   `koanf:"macros"`
	Passages     PassagesConfig `koanf:"passages"`
	History      HistoryConfig  `koanf:"history"`
	Saves        SavesConfig    `koanf:"saves"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}
