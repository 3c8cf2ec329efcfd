package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("story-dir", "", "story directory")
	flags.String("scripts-dir", "", "scripts directory")
	flags.String("state", "", "state database")
	flags.String("start", "", "start passage")
	flags.Int("max-iterations", 0, "iteration budget")
	flags.Bool("nobr", false, "collapse line breaks")
	flags.Bool("verbose", false, "verbose")
	return flags
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultStoryDir, cfg.StoryDir)
	assert.Equal(t, DefaultMaxLoopIterations, cfg.Macros.MaxLoopIterations)
	assert.Equal(t, " ", cfg.Macros.TypeSkipKey)
	assert.Equal(t, DefaultMaxStates, cfg.History.MaxStates)
	assert.Equal(t, DefaultMaxSlots, cfg.Saves.MaxSlots)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "empty story_dir",
			mutate:    func(c *Config) { c.StoryDir = "" },
			errSubstr: "story_dir is required",
		},
		{
			name:      "zero iteration budget",
			mutate:    func(c *Config) { c.Macros.MaxLoopIterations = 0 },
			errSubstr: "macros.max_loop_iterations must be a positive integer",
		},
		{
			name:      "negative iteration budget",
			mutate:    func(c *Config) { c.Macros.MaxLoopIterations = -5 },
			errSubstr: "got -5",
		},
		{
			name:      "zero max states",
			mutate:    func(c *Config) { c.History.MaxStates = 0 },
			errSubstr: "history.max_states",
		},
		{
			name:      "zero max slots",
			mutate:    func(c *Config) { c.Saves.MaxSlots = 0 },
			errSubstr: "saves.max_slots",
		},
		{
			name:      "unknown output",
			mutate:    func(c *Config) { c.OutputFormat = "html" },
			errSubstr: `got "html"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := Default()
	cfg.StoryDir = t.TempDir()
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.StoryDir = filepath.Join(cfg.StoryDir, "missing")
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "story directory does not exist")
}

func TestLoadConfig_FileValues(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, `story_dir: passages
start_passage: Prologue
output: json
macros:
  max_loop_iterations: 50
  type_skip_key: x
passages:
  nobr: true
history:
  max_states: 3
saves:
  max_slots: 2
`)
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "passages"), cfg.StoryDir)
	assert.Equal(t, filepath.Join(root, DefaultScriptsDir), cfg.ScriptsDir)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, "Prologue", cfg.StartPassage)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 50, cfg.Macros.MaxLoopIterations)
	assert.Equal(t, "x", cfg.Macros.TypeSkipKey)
	assert.True(t, cfg.Passages.Nobr)
	assert.Equal(t, 3, cfg.History.MaxStates)
	assert.Equal(t, 2, cfg.Saves.MaxSlots)
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "verbose: false\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxLoopIterations, cfg.Macros.MaxLoopIterations)
	assert.Equal(t, DefaultTypeSkipKey, cfg.Macros.TypeSkipKey)
	assert.False(t, cfg.Passages.Nobr)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
}

func TestLoadConfig_RejectsInvalidBudget(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "macros:\n  max_loop_iterations: 0\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macros.max_loop_iterations must be a positive integer")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "macros: [unclosed\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "story_dir: from_file\nmacros:\n  max_loop_iterations: 10\n")
	t.Setenv("LEAPSTORY_STORY_DIR", "from_env")
	t.Setenv("LEAPSTORY_MACROS__MAX_LOOP_ITERATIONS", "20")

	flags := testFlags()
	require.NoError(t, flags.Set("story-dir", "from_flag"))
	require.NoError(t, flags.Set("max-iterations", "30"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	wantDir, err := filepath.Abs("from_flag")
	require.NoError(t, err)
	assert.Equal(t, wantDir, cfg.StoryDir, "flag paths resolve against the working directory")
	assert.Equal(t, 30, cfg.Macros.MaxLoopIterations)
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "story_dir: from_file\nhistory:\n  max_states: 5\n")
	t.Setenv("LEAPSTORY_STORY_DIR", "from_env")
	t.Setenv("LEAPSTORY_HISTORY__MAX_STATES", "9")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "from_env"), cfg.StoryDir)
	assert.Equal(t, 9, cfg.History.MaxStates)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "story_dir: from_file\n")
	t.Setenv("LEAPSTORY_STORY_DIR", "from_env")

	flags := testFlags()

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "from_env"), cfg.StoryDir)
}

func TestLoadConfig_MappedFlags(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfig(t, "verbose: false\n")

	flags := testFlags()
	require.NoError(t, flags.Set("state", ":memory:"))
	require.NoError(t, flags.Set("start", "Cellar"))
	require.NoError(t, flags.Set("nobr", "true"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.StatePath)
	assert.Equal(t, "Cellar", cfg.StartPassage)
	assert.True(t, cfg.Passages.Nobr)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ExpandsEnvInPaths(t *testing.T) {
	ResetConfig()

	home := t.TempDir()
	t.Setenv("STORY_HOME", home)
	cfgPath := writeConfig(t, "story_dir: ${STORY_HOME}/tale\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "tale"), cfg.StoryDir)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("{}"), 0600))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, "", FindProjectRoot(t.TempDir()))
}

func TestResolvePathRelativeTo(t *testing.T) {
	tests := []struct {
		name string
		path string
		base string
		want string
	}{
		{name: "relative", path: "story", base: "/proj", want: filepath.Join("/proj", "story")},
		{name: "absolute", path: "/abs/story", base: "/proj", want: "/abs/story"},
		{name: "empty", path: "", base: "/proj", want: ""},
		{name: "memory", path: ":memory:", base: "/proj", want: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePathRelativeTo(tt.path, tt.base))
		})
	}
}

func TestEnvAndFlagKeys(t *testing.T) {
	assert.Equal(t, "macros.max_loop_iterations", envKey("LEAPSTORY_MACROS__MAX_LOOP_ITERATIONS"))
	assert.Equal(t, "story_dir", envKey("LEAPSTORY_STORY_DIR"))
	assert.Equal(t, "state_path", flagKey("state"))
	assert.Equal(t, "scripts_dir", flagKey("scripts-dir"))
	assert.Equal(t, "passages.nobr", flagKey("nobr"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	cfg := Default()
	cfg.StoryDir = "elsewhere"
	assert.Same(t, cfg, FromContext(WithConfig(context.Background(), cfg)))
}
