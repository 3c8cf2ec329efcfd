package story

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapstory/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_meta.twee", ":: StoryTitle\nThe Cave\n\n:: StoryData\n{\"ifid\": \"ABC\", \"start\": \"Mouth\", \"format\": \"SugarCube\"}\n")
	writeFile(t, dir, "b_cave.twee", ":: Mouth\nDark.\n\n:: Depths\nDarker.\n")
	writeFile(t, dir, "chapters/c_more.tw", ":: Lake\nWet.\n")
	writeFile(t, dir, "notes.txt", ":: Ignored\nnot twee\n")
	writeFile(t, dir, ".hidden/d.twee", ":: Hidden\nskip\n")

	s, err := Load(context.Background(), dir, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "The Cave", s.Title)
	assert.Equal(t, "ABC", s.Data.IFID)
	assert.Equal(t, "SugarCube", s.Data.Format)
	assert.Equal(t, "Mouth", s.Start())
	assert.Equal(t, []string{"Mouth", "Depths", "Lake"}, s.Names())
	assert.Equal(t, 3, s.Len())

	text, ok := s.Passage("Depths")
	require.True(t, ok)
	assert.Equal(t, "Darker.", text)

	_, ok = s.Passage("Ignored")
	assert.False(t, ok)
	assert.Nil(t, s.Get("Hidden"))
	assert.Equal(t, filepath.Join(dir, "chapters", "c_more.tw"), s.Get("Lake").File)
}

func TestLoad_DuplicatePassage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.twee", ":: Start\none\n")
	writeFile(t, dir, "b.twee", "\n:: Start\ntwo\n")

	_, err := Load(context.Background(), dir, nil)
	require.Error(t, err)

	parseErr, ok := err.(*ParseError)
	require.True(t, ok, "expected *ParseError, got %T", err)
	assert.Equal(t, filepath.Join(dir, "b.twee"), parseErr.File)
	assert.Equal(t, 2, parseErr.Line)
	assert.Contains(t, parseErr.Message, "already defined at "+filepath.Join(dir, "a.twee")+":1")
}

func TestLoad_ParseErrorStopsLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.twee", ":: Start\nok\n")
	writeFile(t, dir, "bad.twee", ":: Broken [tag\n")

	_, err := Load(context.Background(), dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated tag block")
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestStory_DefaultStart(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(&Passage{Name: "Start", Text: "hi"}))
	assert.Equal(t, DefaultStart, s.Start())

	err := s.Add(&Passage{Name: DataPassage, Text: "{not json"})
	assert.Error(t, err)
}
