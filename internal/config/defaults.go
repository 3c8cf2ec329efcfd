package config

// Default configuration values.
const (
	DefaultStoryDir          = "story"
	DefaultScriptsDir        = "scripts"
	DefaultStateFile         = ".leapstory/state.db"
	DefaultOutput            = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMaxLoopIterations = 1000
	DefaultTypeSkipKey       = " "
	DefaultMaxStates         = 40
	DefaultMaxSlots          = 8
)

// defaultValues returns the flat key map loaded before any other source.
func defaultValues() map[string]any {
	return map[string]any{
		"story_dir":                  DefaultStoryDir,
		"scripts_dir":                DefaultScriptsDir,
		"state_path":                 DefaultStateFile,
		"start_passage":              "",
		"verbose":                    false,
		"output":                     DefaultOutput,
		"macros.max_loop_iterations": DefaultMaxLoopIterations,
		"macros.type_skip_key":       DefaultTypeSkipKey,
		"passages.nobr":              false,
		"history.max_states":         DefaultMaxStates,
		"saves.max_slots":            DefaultMaxSlots,
	}
}

// Default returns a Config holding only default values.
func Default() *Config {
	return &Config{
		StoryDir:     DefaultStoryDir,
		ScriptsDir:   DefaultScriptsDir,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Macros: MacrosConfig{
			MaxLoopIterations: DefaultMaxLoopIterations,
			TypeSkipKey:       DefaultTypeSkipKey,
		},
		History: HistoryConfig{MaxStates: DefaultMaxStates},
		Saves:   SavesConfig{MaxSlots: DefaultMaxSlots},
	}
}
