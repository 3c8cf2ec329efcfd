package config

import (
	"fmt"
	"os"
)

// Output formats accepted by the output setting.
var validOutputs = map[string]bool{
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StoryDir == "" {
		return fmt.Errorf("story_dir is required")
	}
	if c.Macros.MaxLoopIterations <= 0 {
		return fmt.Errorf("macros.max_loop_iterations must be a positive integer, got %d", c.Macros.MaxLoopIterations)
	}
	if c.History.MaxStates <= 0 {
		return fmt.Errorf("history.max_states must be a positive integer, got %d", c.History.MaxStates)
	}
	if c.Saves.MaxSlots <= 0 {
		return fmt.Errorf("saves.max_slots must be a positive integer, got %d", c.Saves.MaxSlots)
	}
	if !validOutputs[c.OutputFormat] {
		return fmt.Errorf("output must be one of auto, text, markdown or json, got %q", c.OutputFormat)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.StoryDir); os.IsNotExist(err) {
		return fmt.Errorf("story directory does not exist: %s\nHint: Create the directory or use --story-dir to specify a different path", c.StoryDir)
	}
	return nil
}
