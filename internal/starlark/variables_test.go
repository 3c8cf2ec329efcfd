package starlark

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestVariables(t *testing.T) {
	v := NewVariables()
	assert.Equal(t, 0, v.Len())

	v.Set("gold", starlark.MakeInt(3))
	v.Set("name", starlark.String("Ada"))
	require.NoError(t, v.SetField("lamp", starlark.True))

	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{"gold", "lamp", "name"}, v.Names())
	assert.Equal(t, []string{"gold", "lamp", "name"}, v.AttrNames())
	assert.Equal(t, `State(gold = 3, lamp = True, name = "Ada")`, v.String())

	got, err := v.Attr("missing")
	require.NoError(t, err)
	assert.Equal(t, starlark.None, got)

	v.Delete("lamp")
	_, ok := v.Get("lamp")
	assert.False(t, ok)

	assert.Equal(t, "State", v.Type())
	assert.Equal(t, starlark.True, v.Truth())
	_, err = v.Hash()
	assert.Error(t, err)
}

func TestVariables_FreezeKeepsWritable(t *testing.T) {
	v := NewVariables()
	v.Freeze()
	require.NoError(t, v.SetField("x", starlark.MakeInt(1)))
	assert.Equal(t, 1, v.Len())
}

func TestVariables_SnapshotRestore(t *testing.T) {
	v := NewVariables()
	v.Set("gold", starlark.MakeInt(12))
	v.Set("items", starlark.NewList([]starlark.Value{starlark.String("lamp")}))

	snap, err := v.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"gold": int64(12), "items": []any{"lamp"}}, snap)

	restored := NewVariables()
	restored.Set("stale", starlark.True)
	require.NoError(t, restored.Restore(map[string]any{
		"gold":  json.Number("12"),
		"ratio": json.Number("0.5"),
		"items": []any{"lamp"},
	}))

	assert.Equal(t, []string{"gold", "items", "ratio"}, restored.Names())
	gold, _ := restored.Get("gold")
	assert.Equal(t, starlark.MakeInt(12), gold)
	ratio, _ := restored.Get("ratio")
	assert.Equal(t, starlark.Float(0.5), ratio)

	err = restored.Restore(map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
	assert.Equal(t, 3, restored.Len(), "failed restore must not clobber variables")
}
