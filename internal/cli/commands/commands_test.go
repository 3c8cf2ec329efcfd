package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapstory/internal/cli/testutil"
	"github.com/leapstack-labs/leapstory/internal/config"
	"github.com/leapstack-labs/leapstory/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderCommand(t *testing.T) {
	cmd := NewRenderCommand()

	assert.Equal(t, "render [passage]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"record", "resume", "markup", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewREPLCommand(t *testing.T) {
	cmd := NewREPLCommand()

	assert.Equal(t, "repl", cmd.Use)
	assert.Equal(t, []string{"play"}, cmd.Aliases)
	assert.NotNil(t, cmd.Flags().Lookup("resume"))
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	for _, flag := range []string{"saves", "clear"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewMacrosCommand(t *testing.T) {
	cmd := NewMacrosCommand()

	assert.Equal(t, "macros", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  bool
	}{
		{
			name: "init empty directory",
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("existing"), 0600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("existing"), 0600))
			},
			args: []string{"--force"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			cmd := NewInitCommand()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetContext(context.Background())
			cmd.SetArgs(append([]string{dir}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range []string{config.ConfigFileName, ".gitignore", "story/start.twee", "scripts/inventory.star"} {
				assert.FileExists(t, filepath.Join(dir, f))
			}
		})
	}
}

func TestInitTemplateLoads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, copyTemplate("story", dir, false))

	eng, err := engine.New(context.Background(), engine.Config{
		StoryDir:      filepath.Join(dir, "story"),
		ScriptsDir:    filepath.Join(dir, "scripts"),
		MaxIterations: config.DefaultMaxLoopIterations,
	})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	assert.Equal(t, "The Lantern Cave", eng.Story().Title)
	assert.Equal(t, "Start", eng.Start())

	out, err := eng.Play("Start")
	require.NoError(t, err)
	assert.Empty(t, out.Errors())
	assert.Contains(t, out.Text(), "It is very dark.")

	out, err = eng.Play("Hall")
	require.NoError(t, err)
	assert.Empty(t, out.Errors())
	assert.Contains(t, out.Text(), "3 coins")
	assert.Contains(t, out.Text(), "A few coins glint")
}

func TestListTemplateFiles(t *testing.T) {
	files, err := listTemplateFiles("story")
	require.NoError(t, err)
	assert.Contains(t, files, ".gitignore")
	assert.Contains(t, files, config.ConfigFileName)
	assert.NotContains(t, files, "gitignore")
}

func newTestSession(t *testing.T) (*playSession, *testutil.TestRenderer) {
	t.Helper()
	dir := testutil.SetupTestProject(t)

	eng, err := engine.New(context.Background(), engine.Config{
		StoryDir:      filepath.Join(dir, "story"),
		ScriptsDir:    filepath.Join(dir, "scripts"),
		StatePath:     ":memory:",
		MaxIterations: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	tr := testutil.NewTestRendererText()
	return &playSession{eng: eng, r: tr.Renderer}, tr
}

func TestPlaySession_Go(t *testing.T) {
	s, tr := newTestSession(t)

	assert.False(t, s.handle(".go Mouth"))
	assert.Contains(t, tr.Output(), "Mouth\nYou enter.")

	tr.Reset()
	s.handle(".go Hall")
	assert.Contains(t, tr.Output(), "Gold: 2")
	assert.Contains(t, tr.Output(), "Two coins.")
	assert.NotContains(t, tr.Output(), "Something else.")
	testutil.AssertNoANSI(t, tr.Output())

	moments, err := s.eng.History()
	require.NoError(t, err)
	require.Len(t, moments, 2)
	assert.Equal(t, "Hall", moments[1].Passage)

	tr.Reset()
	s.handle(".go Nowhere")
	assert.Contains(t, tr.ErrorOutput(), "passage not found")

	tr.Reset()
	s.handle(".go")
	assert.Contains(t, tr.ErrorOutput(), "Usage: .go <passage>")
}

func TestPlaySession_EvalRun(t *testing.T) {
	s, tr := newTestSession(t)
	s.handle(".go Mouth")

	tr.Reset()
	s.handle(".eval $gold")
	assert.Equal(t, "2\n", tr.Output())

	tr.Reset()
	s.handle(".run $gold += 1")
	s.handle(".eval $gold * 2")
	assert.Equal(t, "6\n", tr.Output())

	tr.Reset()
	s.handle(".eval nope(")
	assert.NotEmpty(t, tr.ErrorOutput())
}

func TestPlaySession_Markup(t *testing.T) {
	s, tr := newTestSession(t)
	s.handle(".go Mouth")

	tr.Reset()
	s.handle("Total: <<= $gold + inventory.count()>>")
	assert.Equal(t, "Total: 5\n", tr.Output())

	tr.Reset()
	s.handle("<<nope>>")
	assert.Contains(t, tr.Output(), "Error: ")
	assert.Contains(t, tr.Output(), "nope")
}

func TestPlaySession_SaveLoad(t *testing.T) {
	s, tr := newTestSession(t)

	s.handle(".save 1")
	assert.Contains(t, tr.ErrorOutput(), "nothing to save")

	s.handle(".go Mouth")
	s.handle(".go Hall")

	tr.Reset()
	s.handle(".save 1 In the hall")
	assert.Contains(t, tr.Output(), `Saved slot 1 "In the hall" (Hall)`)

	s.handle(".run $gold = 9")
	s.handle(".go Mouth")

	tr.Reset()
	s.handle(".load 1")
	assert.Equal(t, "Hall", s.eng.Current())
	assert.Contains(t, tr.Output(), "Gold: 2")

	tr.Reset()
	s.handle(".save x")
	assert.Contains(t, tr.ErrorOutput(), "Usage: .save")

	tr.Reset()
	s.handle(".load 99")
	assert.NotEmpty(t, tr.ErrorOutput())
}

func TestPlaySession_Commands(t *testing.T) {
	s, tr := newTestSession(t)

	s.handle(".vars")
	assert.Contains(t, tr.Output(), "No variables set")

	s.handle(".go Mouth")
	tr.Reset()
	s.handle(".vars")
	assert.Contains(t, tr.Output(), "$gold")

	tr.Reset()
	s.handle(".passages")
	assert.Equal(t, "Mouth\nHall\nShelf\nBroken\n", tr.Output())

	tr.Reset()
	s.handle(".history")
	assert.Contains(t, tr.Output(), "Mouth")

	tr.Reset()
	s.handle(".help")
	assert.Contains(t, tr.Output(), ".save <slot> [title]")

	tr.Reset()
	s.handle(".bogus")
	assert.Contains(t, tr.ErrorOutput(), "Unknown command: .bogus")

	assert.False(t, s.handle("   "))
	assert.True(t, s.handle(".quit"))
	assert.True(t, s.handle(".EXIT"))
}

func TestPlaySession_Resume(t *testing.T) {
	s, tr := newTestSession(t)

	s.handle(".resume")
	assert.NotEmpty(t, tr.ErrorOutput())

	s.handle(".go Mouth")
	s.handle(".go Hall")
	s.handle(".run $gold = 50")

	tr.Reset()
	s.handle(".resume")
	assert.Equal(t, "Hall", s.eng.Current())
	assert.Contains(t, tr.Output(), "Gold: 2")

	moments, err := s.eng.History()
	require.NoError(t, err)
	assert.Len(t, moments, 2)
}
