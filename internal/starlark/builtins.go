package starlark

import (
	"fmt"
	"math"
	"math/rand/v2"

	"go.starlark.net/starlark"
)

// Predeclared returns all predeclared/builtin globals for story scripts.
// This includes: State, the JavaScript-style literals true/false/null/undefined/NaN,
// and the either() and random() helpers.
// Note: Helper namespaces are added separately via the script loader.
func Predeclared(vars *Variables) starlark.StringDict {
	return starlark.StringDict{
		StateGlobal: vars,
		"true":      starlark.True,
		"false":     starlark.False,
		"null":      starlark.None,
		"undefined": starlark.None,
		"NaN":       starlark.Float(math.NaN()),
		"either":    starlark.NewBuiltin("either", either),
		"random":    starlark.NewBuiltin("random", random),
	}
}

// either returns one of its arguments at random. List arguments are
// flattened into the candidate set.
func either(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}

	var candidates []starlark.Value
	for _, arg := range args {
		if list, ok := arg.(*starlark.List); ok {
			for i := 0; i < list.Len(); i++ {
				candidates = append(candidates, list.Index(i))
			}
			continue
		}
		candidates = append(candidates, arg)
	}

	if len(candidates) == 0 {
		return starlark.None, nil
	}
	return candidates[rand.IntN(len(candidates))], nil
}

// random returns an integer in [min, max], or [0, max] with one argument.
func random(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi int
	if len(args) == 1 {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &hi); err != nil {
			return nil, err
		}
	} else if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &lo, &hi); err != nil {
		return nil, err
	}

	if hi < lo {
		lo, hi = hi, lo
	}
	return starlark.MakeInt(lo + rand.IntN(hi-lo+1)), nil
}
