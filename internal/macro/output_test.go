package macro

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_WriteAndErrors(t *testing.T) {
	out := NewOutput()
	out.WriteString("Hello, ")
	out.WriteString("world")
	out.WriteError(Errorf("set", "bad evaluation: %s", "boom"))
	out.WriteString("!")
	out.WriteError(Errorf("print", "no expression specified"))

	assert.Equal(t, 4, out.Len(), "adjacent text runs should merge")
	assert.Equal(t, "Hello, world!", out.Text())
	assert.Equal(t, "Hello, worldError: <<set>>: bad evaluation: boom!Error: <<print>>: no expression specified", out.String())

	errs := out.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "set", errs[0].Macro)
	assert.Equal(t, "print", errs[1].Macro)
}

func TestOutput_Append(t *testing.T) {
	parent := NewOutput()
	parent.WriteString("a")

	child := NewOutput()
	child.WriteString("b")
	child.WriteError(Errorf("x", "oops"))

	parent.Append(child)

	assert.Equal(t, "ab", parent.Text())
	assert.Len(t, parent.Errors(), 1)
	assert.Equal(t, 0, child.Len(), "appended output should be drained")
}

func TestOutput_MapText(t *testing.T) {
	out := NewOutput()
	out.WriteString("a\nb")
	out.WriteError(Errorf("x", "keep\nme"))

	out.MapText(func(s string) string { return s + "!" })

	assert.Equal(t, "a\nb!", out.Text())
	assert.Equal(t, "keep\nme", out.Errors()[0].Message)
}

func TestAsError(t *testing.T) {
	inv := &Invocation{Name: "switch", Source: "<<switch $x>>", Pos: Position{File: "Start", Line: 3, Column: 1}}

	t.Run("plain error", func(t *testing.T) {
		err := AsError(inv, errors.New("boom"))
		assert.Equal(t, KindStructural, err.Kind)
		assert.Equal(t, "<<switch>>: boom", err.Error())
		assert.Equal(t, inv.Pos, err.Pos)
		assert.Equal(t, inv.Source, err.Source)
	})

	t.Run("signal keeps kind", func(t *testing.T) {
		err := AsError(inv, inv.EvalError(errors.New("x"), "bad evaluation: %s", "x"))
		assert.Equal(t, KindEvaluation, err.Kind)
		assert.Equal(t, "bad evaluation: x", err.Message)
	})

	t.Run("wrapped limit", func(t *testing.T) {
		err := AsError(inv, fmt.Errorf("include: %w", ErrIterationLimit))
		assert.Equal(t, KindLimit, err.Kind)
		assert.ErrorIs(t, err, ErrIterationLimit)
	})

	t.Run("limit signal", func(t *testing.T) {
		err := AsError(inv, LimitError(10))
		assert.Equal(t, KindLimit, err.Kind)
		assert.Equal(t, "switch", err.Macro)
		assert.Contains(t, err.Message, "(10)")
		assert.ErrorIs(t, err, ErrIterationLimit)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsError(inv, nil))
	})
}
